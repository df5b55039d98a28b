package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc produces the value for a missed key.
type LoaderFunc func(ctx context.Context) ([]byte, error)

// DefaultLoadTimeout bounds a shared load once it is detached from the
// caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// ReadThrough wraps a Cache with load-on-miss. Concurrent misses for the
// same key share one load. Errors are not cached.
//
// The shared load does not inherit the starting caller's cancellation: a
// caller that gives up returns its own ctx error while the others keep
// waiting on the load.
type ReadThrough struct {
	cache       Cache
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
}

// NewReadThrough creates a read-through view of c. A zero ttl uses the
// cache default.
func NewReadThrough(c Cache, ttl time.Duration) (*ReadThrough, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	return &ReadThrough{cache: c, ttl: ttl, loadTimeout: DefaultLoadTimeout}, nil
}

// Get returns the cached value for key, calling load on a miss.
func (r *ReadThrough) Get(ctx context.Context, key string, load LoaderFunc) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if v, ok := r.cache.Get(ctx, key); ok {
		return v, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		if v, ok := r.cache.Get(lctx, key); ok {
			return v, nil
		}
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		_ = r.cache.Set(lctx, key, v, r.ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
