package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	redisclient "github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/redis"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
	"github.com/scriptcycle/rxrecommender/pkg/phi"
)

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client *redisclient.Client
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{
		client: client,
	}
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key phi.Key) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, apperrors.NewCacheUnavailableError("failed to get from cache", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key phi.Key, value []byte, ttl time.Duration) error {
	if err := a.client.Client().Set(ctx, key.String(), value, ttl).Err(); err != nil {
		return apperrors.NewCacheUnavailableError("failed to set in cache", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key phi.Key) error {
	if err := a.client.Client().Del(ctx, key.String()).Err(); err != nil {
		return apperrors.NewCacheUnavailableError("failed to delete from cache", err)
	}
	return nil
}

// DeleteByPrefix removes every key under a namespace prefix using SCAN,
// so large namespaces are cleared without blocking the store.
func (a *RedisAdapter) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	iter := a.client.Client().Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := a.client.Client().Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, apperrors.NewCacheUnavailableError("failed to delete from cache", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, apperrors.NewCacheUnavailableError("failed to scan cache keys", err)
	}
	return deleted, nil
}
