package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger is the part of a Redis client the checker needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker reports the shared cache. Unreachable Redis is Degraded:
// renders continue against the in-process cache and lock.
type RedisChecker struct {
	client Pinger
}

// NewRedisChecker creates a RedisChecker.
func NewRedisChecker(client Pinger) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) Result {
	if c.client == nil {
		return Degraded("redis not configured, serving from memory", nil)
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return Degraded("redis unreachable, serving from memory", err)
	}
	r := Healthy("redis reachable")
	if s, ok := c.client.(interface{ PoolStats() *redis.PoolStats }); ok {
		stats := s.PoolStats()
		r = r.With(map[string]any{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
		})
	}
	return r
}
