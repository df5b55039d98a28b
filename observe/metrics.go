package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics records pipeline metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one pipeline operation with duration and error status.
	RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCacheLookup counts one image request by its cache outcome
	// (HIT-FRESH, HIT-SWR, HIT-POLL, MISS, ERROR).
	RecordCacheLookup(ctx context.Context, result string)

	// RecordExecution counts one data-code run by outcome (ok, error, skipped).
	RecordExecution(ctx context.Context, outcome string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookups      metric.Int64Counter
	executions   metric.Int64Counter
}

// NewMetrics creates the service instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"pinog.render.total",
		metric.WithDescription("Total number of pipeline operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"pinog.render.errors",
		metric.WithDescription("Total number of failed pipeline operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"pinog.render.duration_ms",
		metric.WithDescription("Pipeline operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"pinog.cache.lookups",
		metric.WithDescription("Image requests by cache outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	executions, err := meter.Int64Counter(
		"pinog.executor.runs",
		metric.WithDescription("Data code executions by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookups:      lookups,
		executions:   executions,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("component", op.Component),
		attribute.String("operation", op.Name),
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, result string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metricsImpl) RecordExecution(ctx context.Context, outcome string) {
	m.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// NopMetrics returns Metrics backed by a no-op meter.
func NopMetrics() Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}
