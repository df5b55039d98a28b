package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out per-key single-flight locks.
//
// Contract:
// - TryLock never blocks waiting for a holder; ok is false when taken.
// - Locks expire after ttl even if never released.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (lock *Lock, ok bool, err error)
}

// Lock is a held lock. Release is idempotent.
type Lock struct {
	key     string
	token   string
	release func(ctx context.Context) error

	once sync.Once
	err  error
}

// Key returns the locked key.
func (l *Lock) Key() string { return l.key }

// Token returns the owner token stored under the key.
func (l *Lock) Token() string { return l.token }

// Release frees the lock if this owner still holds it.
func (l *Lock) Release(ctx context.Context) error {
	l.once.Do(func() { l.err = l.release(ctx) })
	return l.err
}

// compare-and-delete so an owner whose TTL lapsed cannot free a lock that
// another instance has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a random owner token.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker creates a locker on client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock attempts to take key for ttl.
func (r *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, unavailable(ctx, "setnx", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{
		key:   key,
		token: token,
		release: func(ctx context.Context) error {
			n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
			if err != nil {
				return unavailable(ctx, "release", err)
			}
			if n == 0 {
				return ErrLockNotHeld
			}
			return nil
		},
	}, true, nil
}

// LocalLocker is a process-local Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localHold
	now  func() time.Time
}

type localHold struct {
	token     string
	expiresAt time.Time
}

// NewLocalLocker creates an empty local locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localHold), now: time.Now}
}

// TryLock attempts to take key for ttl within this process.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.expiresAt) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.held[key] = localHold{token: token, expiresAt: now.Add(ttl)}

	return &Lock{
		key:   key,
		token: token,
		release: func(context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if h, ok := l.held[key]; ok && h.token == token {
				delete(l.held, key)
				return nil
			}
			return ErrLockNotHeld
		},
	}, true, nil
}

// FallbackLocker uses primary and falls back to a process-local locker when
// primary reports ErrUnavailable. Single-flight is then per instance only.
type FallbackLocker struct {
	primary Locker
	local   *LocalLocker
}

// NewFallbackLocker wraps primary. A nil primary means local only.
func NewFallbackLocker(primary Locker) *FallbackLocker {
	return &FallbackLocker{primary: primary, local: NewLocalLocker()}
}

// TryLock attempts the primary locker first.
func (f *FallbackLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	if f.primary == nil {
		return f.local.TryLock(ctx, key, ttl)
	}
	lock, ok, err := f.primary.TryLock(ctx, key, ttl)
	if errors.Is(err, ErrUnavailable) {
		lock, ok, lerr := f.local.TryLock(ctx, key, ttl)
		if lerr != nil {
			return nil, false, fmt.Errorf("cache: local lock: %w", lerr)
		}
		return lock, ok, nil
	}
	return lock, ok, err
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
	_ Locker = (*FallbackLocker)(nil)
)
