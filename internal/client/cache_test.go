package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"crudkit/internal/keyhash"
	"crudkit/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backdateCacheEntry ages a cached entry by the given number of seconds.
func backdateCacheEntry(c *Client, endpoint string, params Params, seconds int64) {
	endpointHash := keyhash.Sum(endpoint)
	paramsHash := keyhash.Params(params)

	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	entry := c.cache.entries[endpointHash][paramsHash]
	entry.timestamp -= seconds
	c.cache.entries[endpointHash][paramsHash] = entry
}

// TestFastCache_Fresh tests that a fresh entry short-circuits the network
func TestFastCache_Fresh(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`{"results":[1]}`)

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, env.doer.callCount())

	resp, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, env.doer.callCount(), "fresh entry must not trigger a network call")
	assert.True(t, resp.FromCache())
}

// TestFastCache_Stale tests that an entry past its max age triggers a new call
func TestFastCache_Stale(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)

	// Just past the default one-minute bound.
	backdateCacheEntry(env.client, "read/widgets", Params{}, 61)

	resp, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, env.doer.callCount())
	assert.False(t, resp.FromCache())
}

// TestFastCache_PerCallMaxAge tests the per-call age override
func TestFastCache_PerCallMaxAge(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)

	backdateCacheEntry(env.client, "read/widgets", Params{}, 61)

	opts := cacheOptions()
	opts.FastCacheMaxAge = 5 * time.Minute

	resp, err := env.client.Get(context.Background(), "read/widgets", nil, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, env.doer.callCount())
	assert.True(t, resp.FromCache())
}

// TestFastCache_DistinctParams tests that different parameter sets miss
func TestFastCache_DistinctParams(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "read/widgets", Params{"page": "1"}, cacheOptions(), nil)
	require.NoError(t, err)

	_, err = env.client.Get(context.Background(), "read/widgets", Params{"page": "2"}, cacheOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, env.doer.callCount())
}

// TestOfflineCache_Hit tests serving from cache while offline
func TestOfflineCache_Hit(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)

	// Make the fast tier stale so only the offline tier can answer.
	backdateCacheEntry(env.client, "read/widgets", Params{}, 3600)
	env.online = false

	resp, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, env.doer.callCount(), "offline hit must never invoke the transport")
	assert.True(t, resp.FromCache())
	assert.Equal(t, []string{"Offline"}, env.notifier.toasts)
}

// TestOfflineCache_Miss tests the connectivity error with no cached entry
func TestOfflineCache_Miss(t *testing.T) {
	env := newTestEnv(t)
	env.online = false

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
	assert.Zero(t, env.doer.callCount())
}

// TestCoalescing_SingleRoundTrip tests that identical concurrent GETs
// share one network call
func TestCoalescing_SingleRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	release := make(chan struct{})
	env.doer.respond = func(*http.Request) (*http.Response, error) {
		<-release
		return jsonResponse(http.StatusOK, `{"results":[42]}`), nil
	}

	var wg sync.WaitGroup
	responses := make([]*Response, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[0], errs[0] = env.client.Get(context.Background(), "read/widgets", Params{"page": "1"}, nil, nil)
	}()

	// Wait until the first caller is blocked in flight, then start the
	// second so it is guaranteed to join rather than race past.
	require.Eventually(t, func() bool {
		return env.doer.callCount() == 1
	}, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[1], errs[1] = env.client.Get(context.Background(), "read/widgets", Params{"page": "1"}, nil, nil)
	}()

	// Give the second caller time to reach the in-flight table; nothing
	// blocks on its path there while the first caller is parked.
	time.Sleep(50 * time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, 1, env.doer.callCount(), "transport must record exactly one call")
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, string(responses[0].Raw()), string(responses[i].Raw()))
	}
}

// TestCoalescing_JoinerContextCancelled tests that a joiner whose context
// expires gets a classified error wrapping the context cause
func TestCoalescing_JoinerContextCancelled(t *testing.T) {
	env := newTestEnv(t)

	release := make(chan struct{})
	env.doer.respond = func(*http.Request) (*http.Response, error) {
		<-release
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = env.client.Get(context.Background(), "read/widgets", nil, nil, nil)
	}()

	require.Eventually(t, func() bool {
		return env.doer.callCount() == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.client.Get(ctx, "read/widgets", nil, nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	wg.Wait()
}

// TestCoalescing_DistinctFingerprints tests that different params do not
// coalesce
func TestCoalescing_DistinctFingerprints(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "read/widgets", Params{"page": "1"}, nil, nil)
	require.NoError(t, err)
	_, err = env.client.Get(context.Background(), "read/widgets", Params{"page": "2"}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, env.doer.callCount())
}

// TestCache_PersistsAcrossClients tests that the cache reloads through the
// store
func TestCache_PersistsAcrossClients(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`{"results":["cached"]}`)

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)

	// A second client over the same store sees the persisted entry.
	doer := &fakeDoer{respond: respondWith(`{"results":["fresh"]}`)}
	c, err := New(Config{
		BaseURL: "https://api.example.com/",
		HTTP:    doer,
		Store:   env.store,
	})
	require.NoError(t, err)
	c.Init()

	resp, err := c.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	assert.True(t, resp.FromCache())
	assert.Zero(t, doer.callCount())
	assert.Contains(t, string(resp.Raw()), "cached")
}

// TestCache_PersistenceFailureDegrades tests memory-only degradation when
// the store cannot persist
func TestCache_PersistenceFailureDegrades(t *testing.T) {
	env := newTestEnv(t)

	// Swap in a store that fails writes.
	env.client.cache.store = failingStore{}

	_, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err, "persistence failures must not surface to callers")
	assert.True(t, env.client.cache.persistBroken)

	// The in-memory tier still works.
	resp, err := env.client.Get(context.Background(), "read/widgets", nil, cacheOptions(), nil)
	require.NoError(t, err)
	assert.True(t, resp.FromCache())
}

// failingStore fails every write.
type failingStore struct{}

func (failingStore) Set(string, []byte, time.Duration) error { return assert.AnError }
func (failingStore) Get(string) ([]byte, error)              { return nil, store.ErrNotFound }
func (failingStore) Delete(string) error                     { return assert.AnError }
func (failingStore) Exists(string) (bool, error)             { return false, nil }
func (failingStore) Close() error                            { return nil }
