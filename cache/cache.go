package cache

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength bounds key size for both tiers.
const MaxKeyLength = 512

// Cache is an in-process byte cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: returned slices must not be mutated by callers.
// - A ttl of zero uses the implementation default.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Store is the shared, networked key/value store.
//
// Contract:
// - Get returns ErrNotFound on a miss.
// - Transport failures wrap ErrUnavailable so callers can degrade.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// ValidateKey checks that key is usable in both tiers.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\r\n") {
		return ErrInvalidKey
	}
	return nil
}
