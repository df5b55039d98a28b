package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation identifies one unit of pipeline work for telemetry.
type Operation struct {
	Component string // pin, render, executor, content, chain
	Name      string // generate, worker, execute, fetch, resolve
	PinID     string // optional
	CacheKey  string // optional
}

// SpanName returns the deterministic span name: <component>.<name>.
func (o Operation) SpanName() string {
	if o.Component == "" {
		return o.Name
	}
	return o.Component + "." + o.Name
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("pinog.component", o.Component),
		attribute.String("pinog.operation", o.Name),
	}
	if o.PinID != "" {
		attrs = append(attrs, attribute.String("pinog.pin_id", o.PinID))
	}
	if o.CacheKey != "" {
		attrs = append(attrs, attribute.String("pinog.cache_key", o.CacheKey))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(op.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
