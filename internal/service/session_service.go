package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

// SessionService starts and completes charging sessions. Each operation runs
// in one transaction and writes the charger with a status guard, so two
// requests racing for the same charger cannot both win.
type SessionService struct {
	store    store.Store
	notifier AvailabilityNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService builds a SessionService. notifier may be nil.
func NewSessionService(s store.Store, notifier AvailabilityNotifier, logger *zap.Logger) *SessionService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SessionService{store: s, notifier: notifier, logger: logger, now: utcNow}
}

// Start occupies an AVAILABLE charger and opens a session on it.
func (s *SessionService) Start(ctx context.Context, chargerID int64) (*model.ChargingSession, error) {
	var session model.ChargingSession
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		charger, err := tx.GetCharger(ctx, chargerID)
		if err != nil {
			return notFound(err, apperr.ErrChargerNotFound)
		}
		if charger.Status != model.ChargerStatusAvailable {
			return apperr.ErrChargerNotAvailable
		}

		now := s.now()
		if err := charger.ChangeStatus(model.ChargerStatusCharging, now); err != nil {
			return err
		}
		if err := tx.UpdateChargerStatus(ctx, charger, model.ChargerStatusAvailable); err != nil {
			if errors.Is(err, store.ErrStaleWrite) {
				return apperr.ErrChargerNotAvailable
			}
			return err
		}

		session = model.StartSession(charger.ID, now)
		return tx.CreateSession(ctx, &session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("charging started", zap.Int64("session_id", session.ID), zap.Int64("charger_id", chargerID))
	return &session, nil
}

// Complete closes an IN_PROGRESS session and releases its charger.
func (s *SessionService) Complete(ctx context.Context, sessionID int64, energyKwh, cost float64) (*model.ChargingSession, error) {
	var v violations
	if energyKwh <= 0 {
		v.add("energyDeliveredKwh", "must be positive")
	}
	if cost <= 0 {
		v.add("cost", "must be positive")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	var session *model.ChargingSession
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return notFound(err, apperr.ErrSessionNotFound)
		}

		now := s.now()
		if err := session.Complete(energyKwh, cost, now); err != nil {
			return err
		}
		if err := tx.CompleteSession(ctx, session); err != nil {
			if errors.Is(err, store.ErrStaleWrite) {
				return apperr.ErrSessionAlreadyCompleted
			}
			return err
		}

		charger, err := tx.GetCharger(ctx, session.ChargerID)
		if err != nil {
			return notFound(err, apperr.ErrChargerNotFound)
		}
		from := charger.Status
		if err := charger.ChangeStatus(model.ChargerStatusAvailable, now); err != nil {
			return err
		}
		if err := tx.UpdateChargerStatus(ctx, charger, from); err != nil {
			if errors.Is(err, store.ErrStaleWrite) {
				return apperr.ErrInvalidStatusTransition
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("charging completed",
		zap.Int64("session_id", session.ID),
		zap.Int64("charger_id", session.ChargerID),
		zap.Float64("energy_kwh", energyKwh),
		zap.Float64("cost", cost))
	s.notifier.Dispatch(session.ChargerID)
	return session, nil
}

// List returns the sessions of one charger, optionally limited to sessions
// started inside [from, to].
func (s *SessionService) List(ctx context.Context, chargerID int64, from, to *time.Time) ([]model.ChargingSession, error) {
	if chargerID <= 0 {
		return nil, apperr.Validation("chargerId: is required")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperr.Validation("endDate: must not be before startDate")
	}
	return s.store.ListSessions(ctx, store.SessionFilter{ChargerID: chargerID, From: from, To: to})
}
