package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	dedupeKeyPrefix = "delivery:"

	// DedupeTTL must comfortably exceed the sender's full retry window,
	// so a late redelivery of an already-applied notification is still
	// recognized as a duplicate.
	DedupeTTL = 48 * time.Hour
)

// FirstDelivery records a notification delivery id and reports whether
// this is the first time it has been seen. SETNX makes the check and the
// record a single atomic step, so concurrent redeliveries cannot both
// observe "first".
func (c *Cache) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	first, err := c.client.SetNX(ctx, dedupeKeyPrefix+deliveryID, "1", DedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery id: %w", err)
	}
	return first, nil
}

// ReleaseDelivery forgets a delivery id. Called when the local mutation
// failed after the id was claimed, so the sender's retry is applied
// instead of being treated as a duplicate.
func (c *Cache) ReleaseDelivery(ctx context.Context, deliveryID string) error {
	if err := c.client.Del(ctx, dedupeKeyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("failed to release delivery id: %w", err)
	}
	return nil
}
