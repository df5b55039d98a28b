package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryConfig configures a MemoryCache.
type MemoryConfig struct {
	// Capacity is the maximum number of entries. Zero means unbounded.
	Capacity int

	// TTL applies when Set is called with a zero ttl. Zero means entries
	// never expire.
	TTL time.Duration
}

// DefaultMemoryConfig mirrors the fallback tier: 500 entries for 60s.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{Capacity: 500, TTL: 60 * time.Second}
}

// MemoryCache is a bounded in-process cache with FIFO eviction. Overwriting
// a key keeps its original insertion position.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	cfg     MemoryConfig
	now     func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Get returns the value for key. Expired entries are dropped lazily.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memoryEntry)
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	return e.value, true
}

// Set stores value, evicting the oldest entries when at capacity.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value = value
		e.expiresAt = expiresAt
		return nil
	}

	if c.cfg.Capacity > 0 {
		for c.order.Len() >= c.cfg.Capacity {
			c.removeElement(c.order.Front())
		}
	}
	c.entries[key] = c.order.PushBack(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*memoryEntry).key)
}

var _ Cache = (*MemoryCache)(nil)
