// Package observe provides the logging, tracing and metrics primitives used by
// the preview-card service.
//
// Logging is structured JSON through zerolog behind the small Logger
// interface every package accepts. Tracing and metrics are OpenTelemetry,
// with the exporter chosen by configuration (stdout, otlp, prometheus, none).
//
// Typical wiring at process start:
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "pinog",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.1},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info", Format: "json"},
//	})
//	defer obs.Shutdown(context.Background())
//
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	err = mw.Run(ctx, observe.Operation{Component: "pin", Name: "generate", PinID: "42"}, generate)
//
// Fields whose keys name credentials (see RedactedFields) are replaced with
// "[REDACTED]" before they reach the writer.
package observe
