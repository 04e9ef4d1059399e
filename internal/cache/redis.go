// Package cache wraps Redis for the two things Lendr keeps there: a
// short-TTL cache of book lookups and the delivery-id keys that make
// mirror handling idempotent.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a handle over one Redis connection pool, shared by the book
// cache and the delivery dedupe keys. Each service runs its own Redis.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at redisURL and verifies the connection.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// A library service is a single modest process; a small pool with a
	// couple of warm connections covers it.
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity, for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client. Prefer the typed helpers in book.go
// and dedupe.go; this exists for one-off diagnostics.
func (c *Cache) Client() *redis.Client {
	return c.client
}
