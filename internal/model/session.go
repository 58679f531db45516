package model

import (
	"time"

	"evcharging-backend/internal/apperr"
)

// SessionStatus is the lifecycle state of a charging session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// ChargingSession is one charging occurrence on a charger. EnergyDeliveredKwh
// and Cost stay nil until the session is completed.
type ChargingSession struct {
	ID                 int64         `gorm:"primaryKey"`
	ChargerID          int64         `gorm:"index;not null"`
	StartTime          time.Time     `gorm:"not null;index"`
	EndTime            *time.Time
	EnergyDeliveredKwh *float64      `gorm:"type:numeric(10,3)"`
	Cost               *float64      `gorm:"type:numeric(12,2)"`
	Status             SessionStatus `gorm:"size:16;not null"`
}

// StartSession opens an IN_PROGRESS session on the given charger.
func StartSession(chargerID int64, now time.Time) ChargingSession {
	return ChargingSession{
		ChargerID: chargerID,
		StartTime: now,
		Status:    SessionStatusInProgress,
	}
}

// Complete closes the session. It only succeeds once.
func (s *ChargingSession) Complete(energyKwh, cost float64, now time.Time) error {
	if s.Status != SessionStatusInProgress {
		return apperr.ErrSessionAlreadyCompleted
	}
	s.EndTime = &now
	s.EnergyDeliveredKwh = &energyKwh
	s.Cost = &cost
	s.Status = SessionStatusCompleted
	return nil
}
