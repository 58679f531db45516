package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

const queueSize = 64

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool tells push subscribers that a charger they watch became available.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.Named("notification"),
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.wg.Add(wp.size)
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker started by Start has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case chargerID := <-wp.jobs:
			wp.notifyCharger(ctx, chargerID)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues a charger for notification. It never blocks the caller;
// when the queue is full the job is dropped.
func (wp *WorkerPool) Dispatch(chargerID int64) {
	select {
	case wp.jobs <- chargerID:
	default:
		wp.logger.Warn("notification queue full, dropping job", zap.Int64("charger_id", chargerID))
	}
}

// notifyCharger pushes an availability message to every subscription
// watching the charger.
func (wp *WorkerPool) notifyCharger(ctx context.Context, chargerID int64) {
	subscriptions, err := wp.store.SubscriptionsForCharger(ctx, chargerID)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.Int64("charger_id", chargerID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := strconv.FormatInt(chargerID, 10)
	if charger, err := wp.store.GetCharger(ctx, chargerID); err != nil {
		wp.logger.Warn("failed to fetch charger", zap.Int64("charger_id", chargerID), zap.Error(err))
	} else if charger.Code != "" {
		label = charger.Code
	}

	wp.logger.Info("sending availability notifications",
		zap.Int64("charger_id", chargerID),
		zap.Int("subscriptions", len(subscriptions)))

	message := []byte(fmt.Sprintf("Charger %s is available", label))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, message)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil && !errors.Is(err, store.ErrNotFound) {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
