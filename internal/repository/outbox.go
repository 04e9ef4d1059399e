package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lendr/lendr/internal/model"
)

// ErrNotificationNotFound is returned when an outbox row does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `
	id, kind, path, payload, status, attempt_count, max_attempts,
	next_retry_at, last_error, http_status, created_at, updated_at`

// EnqueueNotification inserts an outbox row for the delivery worker.
func (r *Repository) EnqueueNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, kind, path, payload, status, attempt_count, max_attempts,
			next_retry_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.Kind,
		n.Path,
		n.Payload,
		n.Status,
		n.AttemptCount,
		n.MaxAttempts,
		n.NextRetryAt,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a single outbox row by id.
func (r *Repository) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	query := `SELECT` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// PendingNotifications returns due outbox rows, oldest first.
func (r *Repository) PendingNotifications(ctx context.Context, limit int) ([]*model.Notification, error) {
	query := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE status = 'pending' AND next_retry_at <= now()
		ORDER BY next_retry_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationDelivered records a successful delivery.
func (r *Repository) MarkNotificationDelivered(ctx context.Context, id string, httpStatus int) error {
	query := `
		UPDATE notifications
		SET status = 'delivered', http_status = $2, last_error = '',
		    attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, httpStatus, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkNotificationFailed records a failed attempt. The row stays pending
// with a bumped retry time unless attempts are exhausted.
func (r *Repository) MarkNotificationFailed(ctx context.Context, id string, httpStatus *int, errMsg string, nextRetryAt time.Time, exhausted bool) error {
	status := string(model.NotificationPending)
	if exhausted {
		status = string(model.NotificationExhausted)
	}

	query := `
		UPDATE notifications
		SET status = $2, http_status = $3, last_error = $4,
		    attempt_count = attempt_count + 1, next_retry_at = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status, httpStatus, errMsg, nextRetryAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// NotificationQueueDepth counts outbox rows still awaiting delivery.
func (r *Repository) NotificationQueueDepth(ctx context.Context) (int64, error) {
	var depth int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE status = 'pending'`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return depth, nil
}

// scanNotification scans one outbox row.
func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.Kind,
		&n.Path,
		&n.Payload,
		&n.Status,
		&n.AttemptCount,
		&n.MaxAttempts,
		&n.NextRetryAt,
		&n.LastError,
		&n.HTTPStatus,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return &n, err
}
