package api

import (
	"time"

	"evcharging-backend/internal/model"
	"evcharging-backend/internal/service"
)

type chargerResponse struct {
	ID                  int64                `json:"id"`
	StationID           int64                `json:"stationId"`
	ChargerCode         string               `json:"chargerCode"`
	Type                model.ChargerType    `json:"type"`
	Status              model.ChargerStatus  `json:"status"`
	PowerKw             *float64             `json:"powerKw"`
	ConnectorType       *model.ConnectorType `json:"connectorType"`
	LastStatusChangedAt time.Time            `json:"lastStatusChangedAt"`
}

func newChargerResponse(c *model.Charger) chargerResponse {
	return chargerResponse{
		ID:                  c.ID,
		StationID:           c.StationID,
		ChargerCode:         c.Code,
		Type:                c.Type,
		Status:              c.Status,
		PowerKw:             c.PowerKw,
		ConnectorType:       c.ConnectorType,
		LastStatusChangedAt: c.LastStatusChangedAt,
	}
}

func newChargerResponses(chargers []model.Charger) []chargerResponse {
	out := make([]chargerResponse, len(chargers))
	for i := range chargers {
		out[i] = newChargerResponse(&chargers[i])
	}
	return out
}

type stationResponse struct {
	ID             int64             `json:"id"`
	StationCode    *string           `json:"stationCode"`
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	OperatorName   string            `json:"operatorName"`
	ContactNumber  string            `json:"contactNumber"`
	OperatingHours string            `json:"operatingHours"`
	Chargers       []chargerResponse `json:"chargers"`
	DistanceKm     *float64          `json:"distanceKm,omitempty"`
}

func newStationResponse(s *model.Station) stationResponse {
	return stationResponse{
		ID:             s.ID,
		StationCode:    s.Code,
		Name:           s.Name,
		Address:        s.Address,
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		OperatorName:   s.OperatorName,
		ContactNumber:  s.ContactNumber,
		OperatingHours: s.OperatingHours,
		Chargers:       newChargerResponses(s.Chargers),
	}
}

type stationPageResponse struct {
	Content       []stationResponse `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
}

func newStationPageResponse(p *service.StationPage) stationPageResponse {
	content := make([]stationResponse, len(p.Stations))
	for i := range p.Stations {
		content[i] = newStationResponse(&p.Stations[i])
	}
	return stationPageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

type sessionResponse struct {
	ID                 int64               `json:"id"`
	ChargerID          int64               `json:"chargerId"`
	StartTime          time.Time           `json:"startTime"`
	EndTime            *time.Time          `json:"endTime"`
	EnergyDeliveredKwh *float64            `json:"energyDeliveredKwh"`
	Cost               *float64            `json:"cost"`
	Status             model.SessionStatus `json:"status"`
}

func newSessionResponse(s *model.ChargingSession) sessionResponse {
	return sessionResponse{
		ID:                 s.ID,
		ChargerID:          s.ChargerID,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		EnergyDeliveredKwh: s.EnergyDeliveredKwh,
		Cost:               s.Cost,
		Status:             s.Status,
	}
}
