package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThumbnailCache stores resolved thumbnail URLs in Redis
type RedisThumbnailCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisThumbnailCache wraps a client. A zero ttl keeps entries forever.
func NewRedisThumbnailCache(client *redis.Client, ttl time.Duration) *RedisThumbnailCache {
	return &RedisThumbnailCache{client: client, ttl: ttl}
}

// Get returns the cached value; a missing key is not an error
func (c *RedisThumbnailCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read thumbnail cache: %w", err)
	}
	return v, true, nil
}

// Set stores value under key
func (c *RedisThumbnailCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write thumbnail cache: %w", err)
	}
	return nil
}
