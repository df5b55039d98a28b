package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the shared store client.
type RedisConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	DialTimeout     time.Duration `koanf:"dial_timeout"`
	MaxRetries      int           `koanf:"max_retries"`
	MinRetryBackoff time.Duration `koanf:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `koanf:"max_retry_backoff"`
}

// DefaultRedisConfig fails fast so a dead Redis degrades to memory quickly.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:             "redis://localhost:6379",
		DialTimeout:     2 * time.Second,
		MaxRetries:      1,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
	}
}

// NewRedisClient parses cfg.URL and applies the timeouts. It does not dial.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.MinRetryBackoff > 0 {
		opts.MinRetryBackoff = cfg.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff > 0 {
		opts.MaxRetryBackoff = cfg.MaxRetryBackoff
	}
	return redis.NewClient(opts), nil
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the value at key or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(ctx, "get", err)
	}
	return b, nil
}

// Set writes value with ttl. A zero ttl never expires.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(ctx, "set", err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(ctx, "exists", err)
	}
	return n > 0, nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(ctx, "del", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable(ctx, "ping", err)
	}
	return nil
}

// Client exposes the underlying client for lockers and health checks.
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// unavailable wraps a transport error. Caller cancellation is returned as is.
func unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

var _ Store = (*RedisStore)(nil)
