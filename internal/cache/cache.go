// Package cache wraps Redis for the record list cache and the shared
// rate-limit counters.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient parses a redis:// URL and verifies the server answers
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// ViewCache is a JSON-backed Redis cache bound to one value type.
// Pass ttl 0 for keys that should not expire.
type ViewCache[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewViewCache creates a ViewCache whose keys are namespaced by prefix
func NewViewCache[T any](client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.SugaredLogger) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get retrieves and unmarshals a value.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnw("Cache read failed", "key", c.prefix+key, "error", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warnw("Cache entry corrupt", "key", c.prefix+key, "error", err)
		return nil, false
	}
	return &v, true
}

// Set stores value under key. A failed write is logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnw("Cache marshal failed", "key", c.prefix+key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warnw("Cache write failed", "key", c.prefix+key, "error", err)
	}
}

// Delete removes a key
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warnw("Cache delete failed", "key", c.prefix+key, "error", err)
	}
}

// WindowCounter counts hits per key in fixed one-window buckets shared
// across server instances
type WindowCounter struct {
	client redis.Cmdable
	window time.Duration
}

// NewWindowCounter creates a counter with the given window length
func NewWindowCounter(client redis.Cmdable, window time.Duration) *WindowCounter {
	return &WindowCounter{client: client, window: window}
}

// Incr bumps the counter for key in the current window and returns the new count
func (w *WindowCounter) Incr(ctx context.Context, key string) (int64, error) {
	bucket := time.Now().UnixNano() / int64(w.window)
	k := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
