// Package messaging implements notification delivery between the
// application layer and the Telegram worker.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher drains the notification queue and delivers through the sender.
// Failed deliveries are retried with exponential backoff; permanently
// undeliverable notifications (blocked bot) are dropped.
type Dispatcher struct {
	queue   notification.Queue
	sender  notification.Sender
	retrier *retry.Retrier
	logger  *slog.Logger
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics DispatcherMetrics
	mu      sync.Mutex
}

// DispatcherMetrics counts delivery outcomes.
type DispatcherMetrics struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// Queue is the notification source.
	Queue notification.Queue

	// Sender delivers notifications (Telegram).
	Sender notification.Sender

	// Workers is the number of concurrent delivery workers.
	Workers int

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Dispatcher{
		queue:   cfg.Queue,
		sender:  cfg.Sender,
		retrier: retry.TelegramRetrier(),
		logger:  cfg.Logger,
		workers: cfg.Workers,
	}
}

// Start launches the delivery workers. Returns immediately.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.logger.Info("notification dispatcher started", "workers", d.workers)
}

// Stop cancels the workers and waits for them to drain.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// Metrics returns a snapshot of delivery counters.
func (d *Dispatcher) Metrics() DispatcherMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("dispatcher worker panic",
				"worker", id,
				"panic", p,
				"stack", string(debug.Stack()),
			)
		}
	}()

	log := d.logger.With("worker", id)

	for {
		n, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrQueueClosed) {
				return
			}
			log.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		d.deliver(ctx, log, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, n *notification.Notification) {
	err := d.retrier.Do(ctx, func(ctx context.Context) error {
		if err := n.MarkSending(); err != nil {
			return retry.Permanent(err)
		}

		result := d.sender.Send(ctx, n)
		if result.Success {
			_ = n.MarkDelivered()
			return nil
		}

		_ = n.MarkFailed(result.Error.Error())

		if !result.Retryable {
			return retry.Permanent(result.Error)
		}

		if result.RetryAfter > 0 {
			select {
			case <-ctx.Done():
				return retry.Permanent(ctx.Err())
			case <-time.After(result.RetryAfter):
			}
		}

		// MarkSending expects queued state on the next attempt
		n.Status = notification.DeliveryQueued
		return retry.Retryable(result.Error)
	})

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case err == nil:
		d.metrics.Delivered++
		log.Debug("notification delivered",
			"notification_id", n.ID.String(),
			"type", n.Type.String(),
			"recipient", n.RecipientID.Int64(),
		)
	case n.Status == notification.DeliveryDropped:
		d.metrics.Dropped++
		log.Warn("notification dropped",
			"notification_id", n.ID.String(),
			"recipient", n.RecipientID.Int64(),
			"reason", n.LastError,
		)
	default:
		d.metrics.Failed++
		log.Error("notification delivery failed",
			"notification_id", n.ID.String(),
			"type", n.Type.String(),
			"recipient", n.RecipientID.Int64(),
			"error", err,
		)
	}
}
