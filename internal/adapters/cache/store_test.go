package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
	"github.com/scriptcycle/rxrecommender/pkg/phi"
)

// fakeProvider is an in-memory CacheProvider with optional injected failures
type fakeProvider struct {
	mu      sync.Mutex
	entries map[string][]byte
	expiry  map[string]time.Time
	fail    bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		entries: make(map[string][]byte),
		expiry:  make(map[string]time.Time),
	}
}

func (p *fakeProvider) Get(ctx context.Context, key phi.Key) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, apperrors.NewCacheUnavailableError("store down", errors.New("refused"))
	}
	data, ok := p.entries[key.String()]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if deadline, ok := p.expiry[key.String()]; ok && time.Now().After(deadline) {
		return nil, providers.ErrCacheMiss
	}
	return data, nil
}

func (p *fakeProvider) Set(ctx context.Context, key phi.Key, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return apperrors.NewCacheUnavailableError("store down", errors.New("refused"))
	}
	p.entries[key.String()] = value
	if ttl > 0 {
		p.expiry[key.String()] = time.Now().Add(ttl)
	}
	return nil
}

func (p *fakeProvider) Delete(ctx context.Context, key phi.Key) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key.String())
	delete(p.expiry, key.String())
	return nil
}

func (p *fakeProvider) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	deleted := 0
	for key := range p.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(p.entries, key)
			delete(p.expiry, key)
			deleted++
		}
	}
	return deleted, nil
}

func mustKey(t *testing.T, namespace string, parts ...string) phi.Key {
	t.Helper()
	key, err := phi.BuildKey(namespace, parts...)
	require.NoError(t, err)
	return key
}

func TestGetOrCompute_CachesValue(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, nil)
	key := mustKey(t, "normalize", "ibuprofen")

	computes := 0
	compute := func(ctx context.Context) (string, error) {
		computes++
		return "rxcui-5640", nil
	}

	first, err := GetOrCompute(context.Background(), store, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "rxcui-5640", first)

	second, err := GetOrCompute(context.Background(), store, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "rxcui-5640", second)
	assert.Equal(t, 1, computes, "second call must be served from cache")
}

func TestGetOrCompute_InvalidateForcesRecompute(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, nil)
	key := mustKey(t, "normalize", "ibuprofen")

	computes := 0
	compute := func(ctx context.Context) (string, error) {
		computes++
		return "rxcui-5640", nil
	}

	_, err := GetOrCompute(context.Background(), store, key, time.Minute, compute)
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(context.Background(), key))

	_, err = GetOrCompute(context.Background(), store, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, computes, "invalidation must force recomputation")
}

func TestGetOrCompute_ExpiredEntryRecomputes(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, nil)
	key := mustKey(t, "normalize", "metformin")

	computes := 0
	compute := func(ctx context.Context) (int, error) {
		computes++
		return 42, nil
	}

	_, err := GetOrCompute(context.Background(), store, key, 10*time.Millisecond, compute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = GetOrCompute(context.Background(), store, key, 10*time.Millisecond, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, computes)
}

func TestGetOrCompute_StoreFailureDegradesToCompute(t *testing.T) {
	provider := newFakeProvider()
	provider.fail = true
	store := NewStore(provider, nil)
	key := mustKey(t, "packages", "153010")

	value, err := GetOrCompute(context.Background(), store, key, time.Minute, func(ctx context.Context) (string, error) {
		return "computed", nil
	})

	require.NoError(t, err, "a store outage must not fail the request")
	assert.Equal(t, "computed", value)
}

func TestGetOrCompute_NilProviderComputesDirectly(t *testing.T) {
	store := NewStore(nil, nil)
	key := mustKey(t, "packages", "153010")

	value, err := GetOrCompute(context.Background(), store, key, time.Minute, func(ctx context.Context) (string, error) {
		return "computed", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "computed", value)
}

func TestGetOrCompute_ComputeErrorPropagates(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, nil)
	key := mustKey(t, "normalize", "unknown")

	cause := apperrors.NewNoMatchError("nothing found")
	_, err := GetOrCompute(context.Background(), store, key, time.Minute, func(ctx context.Context) (string, error) {
		return "", cause
	})

	assert.ErrorIs(t, err, cause)
	_, getErr := provider.Get(context.Background(), key)
	assert.ErrorIs(t, getErr, providers.ErrCacheMiss, "failed computations must not be cached")
}

func TestInvalidateNamespace(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, nil)

	for _, name := range []string{"ibuprofen", "metformin"} {
		key := mustKey(t, "normalize", name)
		_, err := GetOrCompute(context.Background(), store, key, time.Minute, func(ctx context.Context) (string, error) {
			return name, nil
		})
		require.NoError(t, err)
	}
	other := mustKey(t, "packages", "153010")
	_, err := GetOrCompute(context.Background(), store, other, time.Minute, func(ctx context.Context) (string, error) {
		return "pkgs", nil
	})
	require.NoError(t, err)

	deleted, err := store.InvalidateNamespace(context.Background(), "normalize")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, getErr := provider.Get(context.Background(), other)
	assert.NoError(t, getErr, "other namespaces must be untouched")
}
