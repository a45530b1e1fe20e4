// Package cache provides Redis cache access layer.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resultPrefix is the Redis key prefix for cached aggregation responses.
const resultPrefix = "result:"

// DefaultResultTTL bounds staleness of cached aggregation responses.
// Snapshots are published daily, so minutes of staleness are harmless.
const DefaultResultTTL = 5 * time.Minute

// Cache provides Redis cache access methods.
type Cache struct {
	client *redis.Client
}

// New creates a new Cache with a Redis client.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to Cache.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetResult loads a cached aggregation response into dest. Returns false
// on a miss; Redis failures are treated as misses so the caller simply
// recomputes.
func (c *Cache) GetResult(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, resultPrefix+key).Bytes()
	if err != nil {
		// redis.Nil and transport errors both degrade to a recompute.
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// SetResult stores an aggregation response under key with the given TTL.
// A non-positive TTL uses DefaultResultTTL. Failures are ignored: the
// cache is an optimization.
func (c *Cache) SetResult(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, resultPrefix+key, raw, ttl)
}

// InvalidateResults drops all cached aggregation responses. Called after
// a fetch lands new snapshots.
func (c *Cache) InvalidateResults(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, resultPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("invalidate %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}
