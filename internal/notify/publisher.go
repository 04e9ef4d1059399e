package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lendr/lendr/internal/metrics"
	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/repository"
)

// Publisher enqueues outbox rows when local mutations occur.
type Publisher struct {
	repo        *repository.Repository
	logger      *slog.Logger
	metrics     metrics.Recorder
	maxAttempts int
}

// NewPublisher creates a new outbox publisher.
func NewPublisher(repo *repository.Repository, logger *slog.Logger, recorder metrics.Recorder, maxAttempts int) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Publisher{
		repo:        repo,
		logger:      logger.With("component", "notify.publisher"),
		metrics:     recorder,
		maxAttempts: maxAttempts,
	}
}

// Publish records an event for delivery to the peer path. The payload is
// whatever JSON body the peer's endpoint expects; the ULID id doubles as
// the idempotency key.
func (p *Publisher) Publish(ctx context.Context, kind model.NotificationKind, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC()
	notification := &model.Notification{
		ID:          ulid.Make().String(),
		Kind:        kind,
		Path:        path,
		Payload:     body,
		Status:      model.NotificationPending,
		MaxAttempts: p.maxAttempts,
		NextRetryAt: now, // Immediate delivery
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.repo.EnqueueNotification(ctx, notification); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	p.metrics.IncNotificationEnqueued(string(kind))
	p.logger.Debug("notification enqueued",
		"delivery_id", notification.ID,
		"kind", kind,
		"path", path,
	)

	return nil
}
