package swr

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
)

// Status is the X-Cache outcome of a request.
type Status string

const (
	StatusFresh Status = "HIT-FRESH"
	StatusStale Status = "HIT-SWR"
	StatusPoll  Status = "HIT-POLL"
	StatusMiss  Status = "MISS"
)

// Generator produces the bytes for a key.
type Generator func(ctx context.Context) ([]byte, error)

// Request is one cache-fronted generation.
type Request struct {
	PinID string
	Key   cache.Key

	// Bundle selects the shorter client max-age of customized cards.
	Bundle bool

	// ForceRefresh skips stale serving and regenerates synchronously.
	ForceRefresh bool

	Generate Generator
}

// Response is what the caller serves.
type Response struct {
	Body         []byte
	Status       Status
	CacheControl string
}

// Config tunes polling and background refresh.
type Config struct {
	// PollInterval is the wait between cache checks while another
	// generator holds the lock.
	// Default: 500ms
	PollInterval time.Duration `koanf:"poll_interval"`

	// PollAttempts bounds the number of checks.
	// Default: 20
	PollAttempts int `koanf:"poll_attempts" validate:"gte=0"`

	// RefreshDelay is how long a background refresh waits after the stale
	// response is sent. Negative means no delay.
	// Default: 500ms
	RefreshDelay time.Duration `koanf:"refresh_delay"`
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 20
	}
	if c.RefreshDelay < 0 {
		c.RefreshDelay = 0
	} else if c.RefreshDelay == 0 {
		c.RefreshDelay = 500 * time.Millisecond
	}
}

// Coordinator implements the per-key state machine.
//
// Contract:
//   - Concurrency: Serve is safe for concurrent use.
//   - Ordering: at most one generation per key runs at a time across all
//     instances sharing the locker, except after a holder's lock TTL lapses.
//   - Errors: generation errors are returned unchanged; the lock is
//     released first.
type Coordinator struct {
	cache   *cache.Tiered
	locker  cache.Locker
	cfg     Config
	logger  observe.Logger
	metrics observe.Metrics

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics sets the lookup recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a Coordinator over a tiered cache and a locker.
func New(store *cache.Tiered, locker cache.Locker, cfg Config, opts ...Option) *Coordinator {
	cfg.applyDefaults()
	c := &Coordinator{
		cache:   store,
		locker:  locker,
		cfg:     cfg,
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serve resolves req to a response.
func (c *Coordinator) Serve(ctx context.Context, req Request) (*Response, error) {
	if req.Generate == nil {
		return nil, ErrNoGenerator
	}
	resp, err := c.serve(ctx, req)
	if err != nil {
		c.metrics.RecordCacheLookup(ctx, "ERROR")
		return nil, err
	}
	c.metrics.RecordCacheLookup(ctx, string(resp.Status))
	return resp, nil
}

func (c *Coordinator) serve(ctx context.Context, req Request) (*Response, error) {
	policy := c.cache.Policy()
	respond := func(body []byte, status Status) *Response {
		return &Response{Body: body, Status: status, CacheControl: policy.CacheControl(req.Bundle)}
	}

	var rejected *[]byte
	if entry, ok := c.cache.Lookup(ctx, req.Key); ok {
		if !req.ForceRefresh {
			if entry.Fresh {
				return respond(entry.Value, StatusFresh), nil
			}
			c.refresh(ctx, req)
			return respond(entry.Value, StatusStale), nil
		}
		c.logger.Debug(ctx, "forced refresh, regenerating",
			observe.Field{Key: "pin_id", Value: req.PinID},
			observe.Field{Key: "fresh", Value: entry.Fresh})
		rejected = &entry.Value
	}

	lock, acquired, err := c.locker.TryLock(ctx, req.Key.Lock, policy.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("swr: acquire lock: %w", err)
	}
	if !acquired {
		body, taken, err := c.poll(ctx, req.Key, rejected)
		if err != nil {
			return nil, err
		}
		if taken == nil {
			return respond(body, StatusPoll), nil
		}
		lock = taken
	}
	defer c.release(ctx, lock)

	body, err := req.Generate(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, req.Key, body); err != nil {
		c.logger.Warn(ctx, "cache write failed", observe.Err(err))
	}
	return respond(body, StatusMiss), nil
}

// poll waits for the lock holder to publish a body. When rejected is set
// the caller forced a refresh, so that body does not count, and the lock
// is taken over once the holder is gone.
func (c *Coordinator) poll(ctx context.Context, key cache.Key, rejected *[]byte) ([]byte, *cache.Lock, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for range c.cfg.PollAttempts {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-ticker.C:
		}
		body, ok := c.cache.Peek(ctx, key)
		if ok && (rejected == nil || !bytes.Equal(body, *rejected)) {
			return body, nil, nil
		}
		if rejected == nil {
			continue
		}
		lock, acquired, err := c.locker.TryLock(ctx, key.Lock, c.cache.Policy().LockTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("swr: acquire lock: %w", err)
		}
		if acquired {
			return nil, lock, nil
		}
	}
	return nil, nil, ErrPollTimeout
}

// refresh schedules a background regeneration unless one is in flight.
// The freshness marker is set before the task starts so concurrent stale
// hits do not schedule duplicates.
func (c *Coordinator) refresh(ctx context.Context, req Request) {
	policy := c.cache.Policy()
	lock, acquired, err := c.locker.TryLock(ctx, req.Key.Lock, policy.LockTTL)
	if err != nil {
		c.logger.Warn(ctx, "background refresh skipped", observe.Err(err))
		return
	}
	if !acquired {
		return
	}
	c.cache.MarkFresh(ctx, req.Key)

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ok := false
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error(bg, "background refresh panicked",
					observe.Field{Key: "pin_id", Value: req.PinID},
					observe.Field{Key: "panic", Value: fmt.Sprint(r)})
			}
			if !ok {
				c.cache.ClearFresh(bg, req.Key)
			}
			c.release(bg, lock)
		}()

		time.Sleep(c.cfg.RefreshDelay)
		genCtx, cancel := context.WithTimeout(bg, policy.LockTTL)
		defer cancel()

		c.logger.Info(bg, "background refresh started", observe.Field{Key: "pin_id", Value: req.PinID})
		body, err := req.Generate(genCtx)
		if err != nil {
			c.logger.Error(bg, "background refresh failed",
				observe.Field{Key: "pin_id", Value: req.PinID}, observe.Err(err))
			return
		}
		if err := c.cache.Put(bg, req.Key, body); err != nil {
			c.logger.Warn(bg, "cache write failed", observe.Err(err))
		}
		ok = true
	}()
}

func (c *Coordinator) release(ctx context.Context, lock *cache.Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn(ctx, "lock release failed",
			observe.Field{Key: "lock", Value: lock.Key()}, observe.Err(err))
	}
}

// Wait blocks until background refreshes finish or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
