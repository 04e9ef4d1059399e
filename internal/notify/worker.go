package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lendr/lendr/internal/metrics"
	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/repository"
)

const (
	// DefaultBatchSize is the number of notifications to process per poll.
	DefaultBatchSize = 50
	// DefaultPollInterval is the time between polling for pending rows.
	DefaultPollInterval = 2 * time.Second
	// DefaultMetricsInterval is how often to update queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
)

// Worker drains the outbox and delivers notifications to the peer.
type Worker struct {
	repo            *repository.Repository
	client          *http.Client
	peerURL         string
	logger          *slog.Logger
	metrics         metrics.Recorder
	batchSize       int
	pollInterval    time.Duration
	metricsInterval time.Duration
	lastMetrics     time.Time
	started         bool
}

// NewWorker creates a new outbox delivery worker.
func NewWorker(repo *repository.Repository, peerURL string, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		repo:            repo,
		client:          NewHTTPClient(),
		peerURL:         peerURL,
		logger:          logger.With("component", "notify.worker"),
		metrics:         recorder,
		batchSize:       DefaultBatchSize,
		pollInterval:    DefaultPollInterval,
		metricsInterval: DefaultMetricsInterval,
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.started {
		return errors.New("worker already started")
	}
	w.started = true

	w.logger.Info("notify worker started", "peer_url", w.peerURL)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notify worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
			}
		}
	}
}

// processOnce fetches and processes a batch of pending notifications.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	notifications, err := w.repo.PendingNotifications(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending notifications: %w", err)
	}

	for _, notification := range notifications {
		if err := w.deliver(ctx, notification); err != nil {
			w.logger.Warn("delivery failed",
				"delivery_id", notification.ID,
				"error", err,
			)
		}
	}

	return nil
}

// deliver attempts to push a single notification to the peer.
func (w *Worker) deliver(ctx context.Context, notification *model.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.peerURL+notification.Path, bytes.NewReader(notification.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	SetDeliveryHeaders(req, notification.ID, string(notification.Kind))

	start := time.Now()
	resp, err := w.client.Do(req)
	duration := time.Since(start)

	w.metrics.ObserveNotificationDeliveryDuration(duration)

	if err != nil {
		return w.handleDeliveryError(ctx, notification, nil, err.Error())
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.logger.Info("notification delivered",
			"delivery_id", notification.ID,
			"kind", notification.Kind,
			"path", notification.Path,
			"http_status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
		w.metrics.IncNotificationDelivery("success")
		return w.repo.MarkNotificationDelivered(ctx, notification.ID, resp.StatusCode)
	}

	// A 4xx means the peer actively rejected the event; retrying will not
	// change the outcome, so the row is exhausted immediately.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		w.metrics.IncNotificationDelivery("exhausted")
		w.logger.Warn("notification rejected by peer",
			"delivery_id", notification.ID,
			"http_status", resp.StatusCode,
		)
		return w.repo.MarkNotificationFailed(ctx, notification.ID, &resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode), time.Now(), true)
	}

	return w.handleDeliveryError(ctx, notification, &resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
}

// handleDeliveryError updates the outbox row after a failed attempt.
func (w *Worker) handleDeliveryError(ctx context.Context, notification *model.Notification, httpStatus *int, errMsg string) error {
	nextAttempt := notification.AttemptCount + 1
	exhausted := IsExhausted(nextAttempt, notification.MaxAttempts)

	status := "failed"
	if exhausted {
		status = "exhausted"
	}

	w.logger.Warn("notification delivery failed",
		"delivery_id", notification.ID,
		"attempt", nextAttempt,
		"exhausted", exhausted,
		"error", errMsg,
	)

	w.metrics.IncNotificationDelivery(status)

	nextRetryAt := NextRetryAt(notification.AttemptCount)
	return w.repo.MarkNotificationFailed(ctx, notification.ID, httpStatus, errMsg, nextRetryAt, exhausted)
}

// maybeUpdateQueueDepth periodically updates queue depth metric.
func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	depth, err := w.repo.NotificationQueueDepth(ctx)
	if err != nil {
		w.logger.Warn("failed to get queue depth", "error", err)
		return
	}
	w.metrics.SetNotificationQueueDepth(depth)
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetPollInterval overrides the default poll interval.
func (w *Worker) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}
