package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"evcharging-backend/config"
	"evcharging-backend/internal/api"
	"evcharging-backend/internal/auth"
	"evcharging-backend/internal/db"
	"evcharging-backend/internal/logging"
	"evcharging-backend/internal/notification"
	"evcharging-backend/internal/seeder"
	"evcharging-backend/internal/service"
	"evcharging-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	var notifier service.AvailabilityNotifier
	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, logger)
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Warn("VAPID keys are not configured, availability notifications are disabled")
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := api.Services{
		Auth:     service.NewAuthService(appStore, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, logger),
		Stations: service.NewStationService(appStore, logger),
		Chargers: service.NewChargerService(appStore, notifier, logger),
		Sessions: service.NewSessionService(appStore, notifier, logger),
	}

	if err := services.Auth.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	// A failed seed leaves the service usable with an empty catalogue.
	if _, err := seeder.NewService(&cfg.Seeder, appStore, logger).Run(ctx); err != nil {
		logger.Warn("station seeding failed", zap.Error(err))
	}

	handler := api.NewHandler(services, appStore, &webpushOptions, logger)
	router := api.NewRouter(handler, tokens, api.RateLimit{
		PerSecond:      cfg.Server.RateLimitPerSec,
		Burst:          cfg.Server.RateLimitBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	logger.Info("server gracefully stopped")
}
