package model

import (
	"time"

	"evcharging-backend/internal/apperr"
)

// ChargerType is the charging technology of a charger.
type ChargerType string

const (
	ChargerTypeACSlow  ChargerType = "AC_SLOW"
	ChargerTypeDCFast  ChargerType = "DC_FAST"
	ChargerTypeDCCombo ChargerType = "DC_COMBO"
)

// ConnectorType is the plug a charger exposes.
type ConnectorType string

const (
	ConnectorACType1 ConnectorType = "AC_TYPE_1"
	ConnectorCHAdeMO ConnectorType = "CHADEMO"
	ConnectorCCS1    ConnectorType = "CCS1"
)

// Charger is a single charging point. StationID is a lookup reference; the
// station owns the charger, never the other way round.
type Charger struct {
	ID                  int64          `gorm:"primaryKey"`
	StationID           int64          `gorm:"index;not null"`
	Code                string         `gorm:"size:64"`
	Type                ChargerType    `gorm:"size:16;not null"`
	Status              ChargerStatus  `gorm:"size:16;not null;index"`
	PowerKw             *float64       `gorm:"type:numeric(10,2)"`
	ConnectorType       *ConnectorType `gorm:"size:16"`
	LastStatusChangedAt time.Time      `gorm:"not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewCharger builds an AVAILABLE charger for the given station.
func NewCharger(stationID int64, code string, chargerType ChargerType, powerKw *float64, connector *ConnectorType, now time.Time) Charger {
	return Charger{
		StationID:           stationID,
		Code:                code,
		Type:                chargerType,
		Status:              ChargerStatusAvailable,
		PowerKw:             powerKw,
		ConnectorType:       connector,
		LastStatusChangedAt: now,
	}
}

// ChangeStatus moves the charger to the given status if the transition is legal.
func (c *Charger) ChangeStatus(to ChargerStatus, now time.Time) error {
	if !CanTransition(c.Status, to) {
		return apperr.ErrInvalidStatusTransition
	}
	c.Status = to
	c.LastStatusChangedAt = now
	return nil
}

// Valid reports whether t is a known charger type.
func (t ChargerType) Valid() bool {
	switch t {
	case ChargerTypeACSlow, ChargerTypeDCFast, ChargerTypeDCCombo:
		return true
	}
	return false
}

// Valid reports whether c is a known connector type.
func (c ConnectorType) Valid() bool {
	switch c {
	case ConnectorACType1, ConnectorCHAdeMO, ConnectorCCS1:
		return true
	}
	return false
}
