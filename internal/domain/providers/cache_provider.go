package providers

import (
	"context"
	"errors"
	"time"

	"github.com/scriptcycle/rxrecommender/pkg/phi"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for the cache store. Keys are
// accepted only as phi.Key values, so raw PHI-bearing strings cannot
// reach the store.
type CacheProvider interface {
	// Get retrieves a value from cache; returns ErrCacheMiss when absent
	Get(ctx context.Context, key phi.Key) ([]byte, error)

	// Set stores a value in cache with an expiration
	Set(ctx context.Context, key phi.Key, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key phi.Key) error

	// DeleteByPrefix removes every key in a namespace prefix and
	// returns the number of deleted entries
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}
