package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint           string  `json:"endpoint" binding:"required"`
	P256DH             string  `json:"p256dh" binding:"required"`
	Auth               string  `json:"auth" binding:"required"`
	SubscribedChargers []int64 `json:"subscribed_chargers"`
}

type subscriptionResponse struct {
	SubscribedChargers []int64 `json:"subscribed_chargers"`
}

// PutSubscription handles the creation or replacement of a subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	subscription := &model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.PutSubscription(c.Request.Context(), subscription, req.SubscribedChargers); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, nil)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.ErrSubscriptionNotFound
		}
		h.respondError(c, err)
		return
	}
	noContent(c)
}

// rawQueryParam returns key's value without URL decoding. Push endpoints are
// stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		h.respondError(c, apperr.Validation("endpoint: is required"))
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.ErrSubscriptionNotFound
		}
		h.respondError(c, err)
		return
	}

	chargerIDs := make([]int64, len(subscription.Chargers))
	for i, charger := range subscription.Chargers {
		chargerIDs[i] = charger.ID
	}
	respond(c, http.StatusOK, subscriptionResponse{SubscribedChargers: chargerIDs})
}
