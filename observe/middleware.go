package observe

import (
	"context"
	"time"
)

// RunFunc is the unit of work wrapped by Middleware.
type RunFunc func(ctx context.Context) error

// Middleware wraps pipeline operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the span context is propagated to fn.
//   - Errors: errors from fn are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that only calls through.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Run executes fn inside a span, records its duration and logs the outcome.
func (m *Middleware) Run(ctx context.Context, op Operation, fn RunFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, op, duration, err)

	fields := []Field{
		{Key: "operation", Value: op.SpanName()},
		{Key: "duration_ms", Value: duration.Milliseconds()},
	}
	if op.PinID != "" {
		fields = append(fields, Field{Key: "pin_id", Value: op.PinID})
	}
	if err != nil {
		m.logger.Warn(ctx, "operation failed", append(fields, Err(err))...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}

// Metrics exposes the recorder so callers can count non-span events.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger exposes the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
