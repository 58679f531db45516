package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/mw"
	"evcharging-backend/internal/service"
)

const defaultNearbyRadiusKm = 5.0

type stationRequest struct {
	StationCode    *string  `json:"stationCode"`
	Name           string   `json:"name" binding:"required"`
	Address        string   `json:"address" binding:"required"`
	Latitude       *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	OperatorName   string   `json:"operatorName"`
	ContactNumber  string   `json:"contactNumber"`
	OperatingHours string   `json:"operatingHours"`
}

func (r stationRequest) input() service.StationInput {
	return service.StationInput{
		Code:           r.StationCode,
		Name:           r.Name,
		Address:        r.Address,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		OperatorName:   r.OperatorName,
		ContactNumber:  r.ContactNumber,
		OperatingHours: r.OperatingHours,
	}
}

// ListStations handles GET /stations?page&size.
func (h *Handler) ListStations(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	size, err := queryInt(c, "size", service.DefaultPageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.services.Stations.List(c.Request.Context(), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newStationPageResponse(result))
}

// NearbyStations handles GET /stations/nearby?lat&lng&radius.
func (h *Handler) NearbyStations(c *gin.Context) {
	lat, latErr := queryFloat(c, "lat", nil)
	lng, lngErr := queryFloat(c, "lng", nil)
	radius, radiusErr := queryFloat(c, "radius", ptr(defaultNearbyRadiusKm))
	for _, err := range []error{latErr, lngErr, radiusErr} {
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	stations, err := h.services.Stations.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]stationResponse, len(stations))
	for i := range stations {
		out[i] = newStationResponse(&stations[i].Station)
		out[i].DistanceKm = &stations[i].DistanceKm
	}
	respond(c, http.StatusOK, out)
}

// GetStation handles GET /stations/:id.
func (h *Handler) GetStation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	station, err := h.services.Stations.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newStationResponse(station))
}

// CreateStation handles POST /stations.
func (h *Handler) CreateStation(c *gin.Context) {
	var req stationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	station, err := h.services.Stations.Create(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.auditStation(c, "station created", station.ID)
	respond(c, http.StatusCreated, newStationResponse(station))
}

// UpdateStation handles PUT /stations/:id. The station code is ignored.
func (h *Handler) UpdateStation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req stationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in := req.input()
	in.Code = nil
	station, err := h.services.Stations.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newStationResponse(station))
}

// DeleteStation handles DELETE /stations/:id.
func (h *Handler) DeleteStation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.services.Stations.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.auditStation(c, "station deleted", id)
	noContent(c)
}

// auditStation records which member changed the station catalogue.
func (h *Handler) auditStation(c *gin.Context, msg string, stationID int64) {
	email, _ := mw.CurrentEmail(c)
	role, _ := mw.CurrentRole(c)
	h.logger.Info(msg,
		zap.Int64("station_id", stationID),
		zap.String("member", email),
		zap.String("role", string(role)))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(key + ": must be an integer")
	}
	return v, nil
}

// queryFloat reads a float query parameter. A nil def makes it required.
func queryFloat(c *gin.Context, key string, def *float64) (float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		if def == nil {
			return 0, apperr.Validation(key + ": is required")
		}
		return *def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation(key + ": must be a finite number")
	}
	return v, nil
}

func ptr[T any](v T) *T { return &v }
