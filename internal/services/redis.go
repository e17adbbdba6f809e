package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProvider owns the Redis client shared by the thumbnail cache
type RedisProvider struct {
	BaseProvider
	client *redis.Client
}

// NewRedisProvider connects to Redis and verifies the connection
func NewRedisProvider(ctx context.Context, address, password string, db int) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProvider{
		BaseProvider: BaseProvider{serviceType: "redis"},
		client:       client,
	}, nil
}

// Client returns the underlying Redis client
func (p *RedisProvider) Client() *redis.Client {
	return p.client
}

// HealthCheck verifies Redis connectivity
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
