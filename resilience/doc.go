// Package resilience provides the failure-handling wrappers placed around the
// service's upstream calls: the chain RPC endpoint, the IPFS gateway, the
// remote data executor and the render worker pool.
//
//   - CircuitBreaker (sony/gobreaker) stops hammering an upstream that keeps
//     failing and fails fast with ErrCircuitOpen.
//   - Retry re-runs an operation with exponential, linear or constant backoff.
//     Errors wrapped with Permanent are never retried.
//   - RateLimiter (golang.org/x/time/rate) bounds how often an operation may
//     start.
//   - Bulkhead (golang.org/x/sync/semaphore) bounds how many run at once.
//   - Timeout bounds a single attempt.
//
// Executor composes them in a fixed order, outermost first: rate limiter,
// bulkhead, circuit breaker, retry, timeout.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "ipfs"})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return fetch(ctx)
//	})
package resilience
