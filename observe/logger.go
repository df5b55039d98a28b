package observe

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: request and trace identifiers carried by ctx are attached to every entry.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that attaches fields to every entry.
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// Err is shorthand for an "error" field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zeroLogger struct {
	z zerolog.Logger
}

// NewLogger creates a JSON logger writing to stderr at the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return NewLoggerWithConfig(LoggingConfig{Enabled: true, Level: level, Output: w})
}

// NewLoggerWithConfig creates a logger from a LoggingConfig.
func NewLoggerWithConfig(cfg LoggingConfig) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	z := zerolog.New(out).
		Level(ParseLogLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &zeroLogger{z: z}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &zeroLogger{z: zerolog.Nop()}
}

func (l *zeroLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.z.Debug(), msg, fields)
}

func (l *zeroLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.z.Info(), msg, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.z.Warn(), msg, fields)
}

func (l *zeroLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.z.Error(), msg, fields)
}

func (l *zeroLogger) With(fields ...Field) Logger {
	zc := l.z.With()
	for _, f := range fields {
		if isRedactedField(f.Key) {
			zc = zc.Str(f.Key, "[REDACTED]")
			continue
		}
		zc = zc.Interface(f.Key, f.Value)
	}
	return &zeroLogger{z: zc.Logger()}
}

func (l *zeroLogger) log(ctx context.Context, ev *zerolog.Event, msg string, fields []Field) {
	// Disabled levels return a nil event.
	if ev == nil {
		return
	}

	if ctx != nil {
		if id := RequestIDFromContext(ctx); id != "" {
			ev = ev.Str("request_id", id)
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			ev = ev.Str("trace_id", sc.TraceID().String())
		}
	}

	for _, f := range fields {
		ev = appendField(ev, f)
	}
	ev.Msg(msg)
}

func appendField(ev *zerolog.Event, f Field) *zerolog.Event {
	if isRedactedField(f.Key) {
		return ev.Str(f.Key, "[REDACTED]")
	}

	switch v := f.Value.(type) {
	case nil:
		return ev.Interface(f.Key, nil)
	case error:
		return ev.AnErr(f.Key, v)
	case string:
		return ev.Str(f.Key, v)
	case int:
		return ev.Int(f.Key, v)
	case int64:
		return ev.Int64(f.Key, v)
	case uint64:
		return ev.Uint64(f.Key, v)
	case float64:
		return ev.Float64(f.Key, v)
	case bool:
		return ev.Bool(f.Key, v)
	case time.Duration:
		return ev.Dur(f.Key, v)
	case time.Time:
		return ev.Time(f.Key, v)
	case []string:
		return ev.Strs(f.Key, v)
	default:
		return ev.Interface(f.Key, v)
	}
}

var redactedKeys = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = true
	}
	return m
}()

func isRedactedField(key string) bool {
	return redactedKeys[key]
}

var _ Logger = (*zeroLogger)(nil)
