package swr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
)

var testKey = cache.NewKey("k1")

func testPolicy() cache.Policy {
	return cache.Policy{
		TTL:          time.Hour,
		Revalidate:   50 * time.Millisecond,
		LockTTL:      5 * time.Second,
		BundleMaxAge: time.Minute,
	}
}

func fastConfig() Config {
	return Config{PollInterval: 10 * time.Millisecond, PollAttempts: 50, RefreshDelay: -1}
}

func newMemory(t *testing.T) (*Coordinator, *cache.Tiered, *cache.FallbackLocker) {
	t.Helper()
	tiered := cache.NewTiered(nil, cache.DefaultMemoryConfig(), testPolicy())
	locker := cache.NewFallbackLocker(nil)
	return New(tiered, locker, fastConfig()), tiered, locker
}

type counter struct {
	calls atomic.Int64
	delay time.Duration
	err   error
	body  string
}

func (c *counter) generate(ctx context.Context) ([]byte, error) {
	n := c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.body != "" {
		return []byte(c.body), nil
	}
	return []byte{byte(n)}, nil
}

type lookups struct {
	observe.Metrics
	mu      sync.Mutex
	results []string
}

func (l *lookups) RecordCacheLookup(_ context.Context, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

func TestServe_MissThenFresh(t *testing.T) {
	tiered := cache.NewTiered(nil, cache.DefaultMemoryConfig(), testPolicy())
	rec := &lookups{Metrics: observe.NopMetrics()}
	c := New(tiered, cache.NewFallbackLocker(nil), fastConfig(), WithMetrics(rec))
	gen := &counter{}
	ctx := context.Background()

	resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, resp.Status)
	assert.Equal(t, "public, max-age=0, stale-while-revalidate=0", resp.CacheControl)

	resp, err = c.Serve(ctx, Request{Key: testKey, Generate: gen.generate, Bundle: true})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, resp.Status)
	assert.Equal(t, []byte{1}, resp.Body)
	assert.Equal(t, "public, max-age=60, stale-while-revalidate=60", resp.CacheControl)
	assert.EqualValues(t, 1, gen.calls.Load())
	assert.Equal(t, []string{"MISS", "HIT-FRESH"}, rec.results)
}

func TestServe_StaleServesAndRefreshesInBackground(t *testing.T) {
	c, tiered, _ := newMemory(t)
	gen := &counter{}
	ctx := context.Background()

	_, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	require.NoError(t, err)
	assert.Equal(t, StatusStale, resp.Status)
	assert.Equal(t, []byte{1}, resp.Body, "stale bytes are served")

	// The freshness marker is set before the refresh runs.
	resp, err = c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, resp.Status)

	require.NoError(t, c.Wait(ctx))
	assert.EqualValues(t, 2, gen.calls.Load())
	v, ok := tiered.Peek(ctx, testKey)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, v)
}

func TestServe_ForceRefreshRegenerates(t *testing.T) {
	c, _, _ := newMemory(t)
	gen := &counter{}
	ctx := context.Background()

	_, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	require.NoError(t, err)

	resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate, ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, resp.Status)
	assert.Equal(t, []byte{2}, resp.Body)
}

func TestServe_ForceRefreshWaitsForNewBody(t *testing.T) {
	c, tiered, locker := newMemory(t)
	ctx := context.Background()
	require.NoError(t, tiered.Put(ctx, testKey, []byte("old")))

	held, ok, err := locker.TryLock(ctx, testKey.Lock, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = tiered.Put(ctx, testKey, []byte("new"))
		_ = held.Release(ctx)
	}()

	gen := &counter{}
	resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate, ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, StatusPoll, resp.Status)
	assert.Equal(t, "new", string(resp.Body))
	assert.Zero(t, gen.calls.Load())
}

func TestServe_ForceRefreshTakesOverReleasedLock(t *testing.T) {
	c, tiered, locker := newMemory(t)
	ctx := context.Background()
	require.NoError(t, tiered.Put(ctx, testKey, []byte("old")))

	held, ok, err := locker.TryLock(ctx, testKey.Lock, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	gen := &counter{body: "regenerated"}
	resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen.generate, ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, resp.Status)
	assert.Equal(t, "regenerated", string(resp.Body))
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestServe_SingleFlight(t *testing.T) {
	c, _, _ := newMemory(t)
	gen := &counter{delay: 100 * time.Millisecond, body: "png"}

	const n = 8
	statuses := make([]Status, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Serve(context.Background(), Request{Key: testKey, Generate: gen.generate})
			if assert.NoError(t, err) {
				statuses[i] = resp.Status
				assert.Equal(t, "png", string(resp.Body))
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, gen.calls.Load())
	var miss int
	for _, s := range statuses {
		if s == StatusMiss {
			miss++
		} else {
			assert.Contains(t, []Status{StatusPoll, StatusFresh}, s)
		}
	}
	assert.Equal(t, 1, miss)
}

func TestServe_PollTimeout(t *testing.T) {
	tiered := cache.NewTiered(nil, cache.DefaultMemoryConfig(), testPolicy())
	locker := cache.NewFallbackLocker(nil)
	c := New(tiered, locker, Config{PollInterval: 5 * time.Millisecond, PollAttempts: 3})
	ctx := context.Background()

	held, ok, err := locker.TryLock(ctx, testKey.Lock, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Release(ctx)

	gen := &counter{}
	_, err = c.Serve(ctx, Request{Key: testKey, Generate: gen.generate})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Zero(t, gen.calls.Load())
}

func TestServe_GenerationFailureReleasesLock(t *testing.T) {
	c, _, locker := newMemory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Serve(ctx, Request{Key: testKey, Generate: (&counter{err: boom}).generate})
	require.ErrorIs(t, err, boom)

	lock, ok, err := locker.TryLock(ctx, testKey.Lock, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be free after a failed generation")
	_ = lock.Release(ctx)
}

func TestServe_BackgroundFailureClearsFreshness(t *testing.T) {
	for name, gen := range map[string]Generator{
		"error": (&counter{err: errors.New("rpc down")}).generate,
		"panic": func(context.Context) ([]byte, error) { panic("render crashed") },
	} {
		t.Run(name, func(t *testing.T) {
			c, tiered, locker := newMemory(t)
			ctx := context.Background()
			require.NoError(t, tiered.Put(ctx, testKey, []byte("old")))
			tiered.ClearFresh(ctx, testKey)

			resp, err := c.Serve(ctx, Request{Key: testKey, Generate: gen})
			require.NoError(t, err)
			assert.Equal(t, StatusStale, resp.Status)
			require.NoError(t, c.Wait(ctx))

			entry, ok := tiered.Lookup(ctx, testKey)
			require.True(t, ok)
			assert.False(t, entry.Fresh, "failed refresh must clear the freshness marker")
			assert.Equal(t, "old", string(entry.Value))

			lock, ok, err := locker.TryLock(ctx, testKey.Lock, time.Second)
			require.NoError(t, err)
			assert.True(t, ok)
			_ = lock.Release(ctx)
		})
	}
}

func TestServe_NoGenerator(t *testing.T) {
	c, _, _ := newMemory(t)
	_, err := c.Serve(context.Background(), Request{Key: testKey})
	assert.ErrorIs(t, err, ErrNoGenerator)
}

func TestServe_SingleFlightAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	instance := func() *Coordinator {
		tiered := cache.NewTiered(cache.NewRedisStore(client), cache.DefaultMemoryConfig(), testPolicy())
		return New(tiered, cache.NewFallbackLocker(cache.NewRedisLocker(client)), fastConfig())
	}
	a, b := instance(), instance()
	gen := &counter{delay: 100 * time.Millisecond, body: "png"}

	var wg sync.WaitGroup
	for _, c := range []*Coordinator{a, b, a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Serve(context.Background(), Request{Key: testKey, Generate: gen.generate})
			if assert.NoError(t, err) {
				assert.Equal(t, "png", string(resp.Body))
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, gen.calls.Load())
	assert.False(t, mr.Exists(testKey.Lock), "lock released")
	assert.True(t, mr.Exists(testKey.Fresh))
}
