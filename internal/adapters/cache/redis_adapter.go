package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healthsnap/backend/internal/domain/providers"
	redisclient "github.com/healthsnap/backend/internal/infrastructure/clients/redis"
)

// RedisAdapter implements CacheProvider on Redis. It backs the HTTP cache
// middleware for doctor catalog reads.
type RedisAdapter struct {
	client *redisclient.Client
}

// NewRedisAdapter creates a Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{client: client}
}

// Get retrieves a cached value, treating a missing key as an error
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("cache miss: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return result, nil
}

// Set stores a value with a TTL in seconds
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Client().Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Delete removes a cached value
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}
