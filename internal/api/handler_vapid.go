package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharging-backend/internal/apperr"
)

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		h.respondError(c, apperr.ErrPushDisabled)
		return
	}

	respond(c, http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
