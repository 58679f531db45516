package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/model"
)

// dateTimeLayouts are tried in order for the startDate/endDate filters. Values
// without an offset are read as UTC.
var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

type completeSessionRequest struct {
	EnergyDeliveredKwh *float64 `json:"energyDeliveredKwh" binding:"required,gt=0"`
	Cost               *float64 `json:"cost" binding:"required,gt=0"`
}

// StartSession handles POST /chargers/:id/sessions.
func (h *Handler) StartSession(c *gin.Context) {
	chargerID, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	session, err := h.services.Sessions.Start(c.Request.Context(), chargerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, newSessionResponse(session))
}

// CompleteSession handles PATCH /sessions/:id/complete.
func (h *Handler) CompleteSession(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req completeSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.services.Sessions.Complete(c.Request.Context(), id, *req.EnergyDeliveredKwh, *req.Cost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newSessionResponse(session))
}

// ListSessions handles GET /sessions?chargerId&startDate&endDate.
func (h *Handler) ListSessions(c *gin.Context) {
	chargerID, err := queryInt(c, "chargerId", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if chargerID <= 0 {
		h.respondError(c, apperr.Validation("chargerId: is required"))
		return
	}
	from, err := queryTime(c, "startDate")
	if err != nil {
		h.respondError(c, err)
		return
	}
	to, err := queryTime(c, "endDate")
	if err != nil {
		h.respondError(c, err)
		return
	}

	sessions, err := h.services.Sessions.List(c.Request.Context(), int64(chargerID), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newSessionResponses(sessions))
}

func newSessionResponses(sessions []model.ChargingSession) []sessionResponse {
	out := make([]sessionResponse, len(sessions))
	for i := range sessions {
		out[i] = newSessionResponse(&sessions[i])
	}
	return out
}

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation(key + ": must be an ISO-8601 date-time")
}
