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

// ChargerInput carries the fields of a new charger. Charger codes are not
// checked for uniqueness.
type ChargerInput struct {
	Code          string
	Type          model.ChargerType
	PowerKw       *float64
	ConnectorType *model.ConnectorType
}

// ChargerService manages chargers and manual status changes.
type ChargerService struct {
	store    store.Store
	notifier AvailabilityNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewChargerService builds a ChargerService. notifier may be nil.
func NewChargerService(s store.Store, notifier AvailabilityNotifier, logger *zap.Logger) *ChargerService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ChargerService{store: s, notifier: notifier, logger: logger, now: utcNow}
}

// ListByStation returns the chargers of a station ordered by id.
func (s *ChargerService) ListByStation(ctx context.Context, stationID int64) ([]model.Charger, error) {
	var chargers []model.Charger
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetStation(ctx, stationID); err != nil {
			return notFound(err, apperr.ErrStationNotFound)
		}
		var err error
		chargers, err = tx.ListChargersByStation(ctx, stationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chargers, nil
}

// Create adds an AVAILABLE charger to an existing station.
func (s *ChargerService) Create(ctx context.Context, stationID int64, in ChargerInput) (*model.Charger, error) {
	var v violations
	if !in.Type.Valid() {
		v.add("type", "must be one of AC_SLOW, DC_FAST, DC_COMBO")
	}
	if in.ConnectorType != nil && !in.ConnectorType.Valid() {
		v.add("connectorType", "must be one of AC_TYPE_1, CHADEMO, CCS1")
	}
	if in.PowerKw != nil && *in.PowerKw <= 0 {
		v.add("powerKw", "must be positive")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	var charger model.Charger
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetStation(ctx, stationID); err != nil {
			return notFound(err, apperr.ErrStationNotFound)
		}
		charger = model.NewCharger(stationID, in.Code, in.Type, in.PowerKw, in.ConnectorType, s.now())
		return tx.CreateCharger(ctx, &charger)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("charger created",
		zap.Int64("charger_id", charger.ID),
		zap.Int64("station_id", stationID),
		zap.String("type", string(charger.Type)))
	return &charger, nil
}

// ChangeStatus applies a manual status change through the transition policy.
func (s *ChargerService) ChangeStatus(ctx context.Context, chargerID int64, to model.ChargerStatus) (*model.Charger, error) {
	if !to.Valid() {
		return nil, apperr.Validation("status: must be one of AVAILABLE, CHARGING, OUT_OF_SERVICE")
	}

	var charger *model.Charger
	var from model.ChargerStatus
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		charger, err = tx.GetCharger(ctx, chargerID)
		if err != nil {
			return notFound(err, apperr.ErrChargerNotFound)
		}

		from = charger.Status
		if err := charger.ChangeStatus(to, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateChargerStatus(ctx, charger, from); err != nil {
			// The edge was checked against a status the row no longer has.
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

	s.logger.Info("charger status changed",
		zap.Int64("charger_id", charger.ID),
		zap.String("from", string(from)),
		zap.String("to", string(charger.Status)))
	if charger.Status == model.ChargerStatusAvailable {
		s.notifier.Dispatch(charger.ID)
	}
	return charger, nil
}
