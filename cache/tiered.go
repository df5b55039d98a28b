package cache

import (
	"context"
	"errors"

	"github.com/jonwraymond/pinog/observe"
)

// Entry sources.
const (
	SourceMemory = "memory"
	SourceRedis  = "redis"
)

var freshMarker = []byte("1")

// Entry is a cache hit.
type Entry struct {
	Value  []byte
	Fresh  bool
	Source string
}

// Tiered reads the in-process cache first and then the shared store.
// Every write lands in both tiers. When the shared store is unreachable,
// freshness is answered from process-local markers.
type Tiered struct {
	store  Store
	mem    Cache
	marks  Cache
	policy Policy
	logger observe.Logger
}

// TieredOption configures a Tiered cache.
type TieredOption func(*Tiered)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l observe.Logger) TieredOption {
	return func(t *Tiered) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTiered composes store and mem. A nil store runs memory only. Freshness
// markers are kept in a separate cache with mem's sizing.
func NewTiered(store Store, mem MemoryConfig, policy Policy, opts ...TieredOption) *Tiered {
	t := &Tiered{
		store:  store,
		mem:    NewMemoryCache(mem),
		marks:  NewMemoryCache(MemoryConfig{Capacity: mem.Capacity, TTL: policy.Revalidate}),
		policy: policy,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the timing policy.
func (t *Tiered) Policy() Policy {
	return t.policy
}

// MemoryEntries returns the number of entries held in process.
func (t *Tiered) MemoryEntries() int {
	if m, ok := t.mem.(*MemoryCache); ok {
		return m.Len()
	}
	return 0
}

// Lookup returns the entry for key with its freshness.
func (t *Tiered) Lookup(ctx context.Context, key Key) (Entry, bool) {
	if v, ok := t.mem.Get(ctx, key.Cache); ok {
		return Entry{Value: v, Fresh: t.isFresh(ctx, key), Source: SourceMemory}, true
	}
	if t.store == nil {
		return Entry{}, false
	}

	v, err := t.store.Get(ctx, key.Cache)
	switch {
	case err == nil:
		return Entry{Value: v, Fresh: t.isFresh(ctx, key), Source: SourceRedis}, true
	case !errors.Is(err, ErrNotFound):
		t.degraded(ctx, "lookup", err)
	}
	return Entry{}, false
}

// Peek returns the cached value without consulting freshness.
func (t *Tiered) Peek(ctx context.Context, key Key) ([]byte, bool) {
	if t.store != nil {
		v, err := t.store.Get(ctx, key.Cache)
		if err == nil {
			return v, true
		}
		if !errors.Is(err, ErrNotFound) {
			t.degraded(ctx, "peek", err)
		}
	}
	return t.mem.Get(ctx, key.Cache)
}

// Put writes value and marks it fresh in both tiers. Shared-store failures
// are logged and do not fail the write.
func (t *Tiered) Put(ctx context.Context, key Key, value []byte) error {
	if t.store != nil {
		if err := t.store.Set(ctx, key.Cache, value, t.policy.TTL); err != nil {
			t.degraded(ctx, "put", err)
		} else if err := t.store.Set(ctx, key.Fresh, freshMarker, t.policy.Revalidate); err != nil {
			t.degraded(ctx, "put", err)
		}
	}
	if err := t.mem.Set(ctx, key.Cache, value, 0); err != nil {
		return err
	}
	return t.marks.Set(ctx, key.Fresh, freshMarker, t.policy.Revalidate)
}

// MarkFresh starts a new freshness window for key.
func (t *Tiered) MarkFresh(ctx context.Context, key Key) {
	if t.store != nil {
		if err := t.store.Set(ctx, key.Fresh, freshMarker, t.policy.Revalidate); err != nil {
			t.degraded(ctx, "mark", err)
		}
	}
	_ = t.marks.Set(ctx, key.Fresh, freshMarker, t.policy.Revalidate)
}

// ClearFresh ends the freshness window for key so the next hit refreshes.
func (t *Tiered) ClearFresh(ctx context.Context, key Key) {
	if t.store != nil {
		if err := t.store.Delete(ctx, key.Fresh); err != nil {
			t.degraded(ctx, "clear", err)
		}
	}
	_ = t.marks.Delete(ctx, key.Fresh)
}

func (t *Tiered) isFresh(ctx context.Context, key Key) bool {
	if t.store != nil {
		ok, err := t.store.Exists(ctx, key.Fresh)
		if err == nil {
			return ok
		}
		t.degraded(ctx, "freshness", err)
	}
	_, ok := t.marks.Get(ctx, key.Fresh)
	return ok
}

func (t *Tiered) degraded(ctx context.Context, op string, err error) {
	t.logger.Warn(ctx, "shared cache unavailable, using memory",
		observe.Field{Key: "op", Value: op},
		observe.Err(err),
	)
}
