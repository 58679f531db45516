package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"evcharging-backend/internal/service"
	"evcharging-backend/internal/store"
)

// Services bundles the business services the handlers call.
type Services struct {
	Auth     *service.AuthService
	Stations *service.StationService
	Chargers *service.ChargerService
	Sessions *service.SessionService
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	services Services
	store    store.Store
	webpush  *webpush.Options
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(services Services, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	return &Handler{
		services: services,
		store:    s,
		webpush:  webpushOptions,
		logger:   logger,
	}
}
