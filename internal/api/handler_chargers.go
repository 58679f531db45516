package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharging-backend/internal/model"
	"evcharging-backend/internal/service"
)

type createChargerRequest struct {
	ChargerCode   string               `json:"chargerCode"`
	Type          model.ChargerType    `json:"type" binding:"required,oneof=AC_SLOW DC_FAST DC_COMBO"`
	PowerKw       *float64             `json:"powerKw" binding:"omitempty,gt=0"`
	ConnectorType *model.ConnectorType `json:"connectorType" binding:"omitempty,oneof=AC_TYPE_1 CHADEMO CCS1"`
}

type chargerStatusRequest struct {
	Status model.ChargerStatus `json:"status" binding:"required,oneof=AVAILABLE CHARGING OUT_OF_SERVICE"`
}

// ListChargers handles GET /stations/:id/chargers.
func (h *Handler) ListChargers(c *gin.Context) {
	stationID, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	chargers, err := h.services.Chargers.ListByStation(c.Request.Context(), stationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newChargerResponses(chargers))
}

// CreateCharger handles POST /stations/:id/chargers.
func (h *Handler) CreateCharger(c *gin.Context) {
	stationID, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req createChargerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	charger, err := h.services.Chargers.Create(c.Request.Context(), stationID, service.ChargerInput{
		Code:          req.ChargerCode,
		Type:          req.Type,
		PowerKw:       req.PowerKw,
		ConnectorType: req.ConnectorType,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, newChargerResponse(charger))
}

// ChangeChargerStatus handles PATCH /chargers/:id/status.
func (h *Handler) ChangeChargerStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req chargerStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	charger, err := h.services.Chargers.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newChargerResponse(charger))
}
