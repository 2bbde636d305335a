package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	"github.com/scriptcycle/rxrecommender/pkg/phi"
)

// Store memoizes computed values in the cache provider. The cache is a
// performance optimization only: a missing or failing store never fails
// the request, it just means the value is computed directly.
type Store struct {
	provider providers.CacheProvider
	metrics  *observability.Metrics
}

// NewStore creates a new memoizing store. provider may be nil, in which
// case every lookup computes directly.
func NewStore(provider providers.CacheProvider, metrics *observability.Metrics) *Store {
	return &Store{
		provider: provider,
		metrics:  metrics,
	}
}

// Invalidate removes a single cached entry
func (s *Store) Invalidate(ctx context.Context, key phi.Key) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Delete(ctx, key)
}

// InvalidateNamespace removes every entry in a key namespace and returns
// the number of deleted entries
func (s *Store) InvalidateNamespace(ctx context.Context, namespace string) (int, error) {
	if s.provider == nil {
		return 0, nil
	}
	return s.provider.DeleteByPrefix(ctx, phi.Prefix(namespace))
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss. Store failures on read or write degrade to the computed value.
// Concurrent misses for the same key may both compute; the last write wins.
func GetOrCompute[T any](
	ctx context.Context,
	s *Store,
	key phi.Key,
	ttl time.Duration,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if s == nil || s.provider == nil || key.IsZero() {
		return compute(ctx)
	}

	data, err := s.provider.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			if s.metrics != nil {
				observability.RecordCacheHit(ctx, s.metrics, key.Namespace())
			}
			return cached, nil
		}
		// Undecodable entry, likely from an older build. Drop it and recompute.
		_ = s.provider.Delete(ctx, key)
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("cache read degraded to direct compute")
	}

	if s.metrics != nil {
		observability.RecordCacheMiss(ctx, s.metrics, key.Namespace())
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil {
		if err := s.provider.Set(ctx, key, data, ttl); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("cache write failed")
		}
	}

	return value, nil
}
