// Package health reports whether the service can render and cache cards.
//
// Checks report one of three states. A Redis outage is Degraded rather
// than Unhealthy: the in-process cache and lock keep serving, so the
// instance stays in rotation. Unhealthy is reserved for conditions the
// instance cannot work around, such as exhausted memory.
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewRedisChecker(client))
//	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	r.Get("/health/ready", health.ReadinessHandler(agg))
package health
