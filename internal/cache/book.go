package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lendr/lendr/internal/model"
)

// Cache key prefixes and TTLs.
const (
	bookKeyPrefix = "book:"

	// DefaultBookTTL is the TTL for cached book data. Short on purpose:
	// the flag flips on every borrow/return and the cache is invalidated
	// on local mutations only, not on mirrored ones.
	DefaultBookTTL = 5 * time.Minute
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// BookKey builds the cache key for a book id.
func BookKey(id int64) string {
	return bookKeyPrefix + strconv.FormatInt(id, 10)
}

// GetBook retrieves a cached book by id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	data, err := c.client.Get(ctx, BookKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var book model.Book
	if err := json.Unmarshal(data, &book); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, ErrCacheMiss
	}

	return &book, nil
}

// SetBook stores a book in cache.
func (c *Cache) SetBook(ctx context.Context, book *model.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	if err := c.client.Set(ctx, BookKey(book.ID), data, DefaultBookTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache book: %w", err)
	}

	return nil
}

// InvalidateBook removes a book from cache.
func (c *Cache) InvalidateBook(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, BookKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate book: %w", err)
	}
	return nil
}
