package service

import (
	"errors"
	"time"

	"evcharging-backend/internal/store"
)

// AvailabilityNotifier is told, after commit, that a charger became AVAILABLE.
type AvailabilityNotifier interface {
	Dispatch(chargerID int64)
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(int64) {}

func utcNow() time.Time {
	return time.Now().UTC()
}

// notFound maps store.ErrNotFound onto the given business error and passes
// every other error through.
func notFound(err, as error) error {
	if errors.Is(err, store.ErrNotFound) {
		return as
	}
	return err
}
