package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

func TestLogger_WritesMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache hit",
		Field{Key: "pin_id", Value: "42"},
		Field{Key: "bytes", Value: 1024},
	)

	entry := decodeLine(t, &buf)
	if entry["message"] != "cache hit" {
		t.Errorf("message = %v, want cache hit", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["pin_id"] != "42" {
		t.Errorf("pin_id = %v, want 42", entry["pin_id"])
	}
	if v, ok := entry["bytes"].(float64); !ok || v != 1024 {
		t.Errorf("bytes = %v, want 1024", entry["bytes"])
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn(context.Background(), "warn")
	if !strings.Contains(buf.String(), `"warn"`) {
		t.Errorf("expected warn entry, got %q", buf.String())
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	tests := []string{"password", "token", "api_key", "sig", "authorization"}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter("info", &buf)
			logger.Info(context.Background(), "msg", Field{Key: key, Value: "super-secret"})

			if strings.Contains(buf.String(), "super-secret") {
				t.Fatalf("field %q leaked: %s", key, buf.String())
			}
			entry := decodeLine(t, &buf)
			if entry[key] != "[REDACTED]" {
				t.Errorf("%s = %v, want [REDACTED]", key, entry[key])
			}
		})
	}
}

func TestLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "render failed", Err(errors.New("worker exited 1")))

	entry := decodeLine(t, &buf)
	if entry["error"] != "worker exited 1" {
		t.Errorf("error = %v, want worker exited 1", entry["error"])
	}
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	logger.Info(ctx, "handled")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", entry["request_id"])
	}
}

func TestLogger_WithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(
		Field{Key: "component", Value: "swr"},
		Field{Key: "token", Value: "abc"},
	)

	logger.Info(context.Background(), "served")

	entry := decodeLine(t, &buf)
	if entry["component"] != "swr" {
		t.Errorf("component = %v, want swr", entry["component"])
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entry["token"])
	}
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "x")
	l.With(Field{Key: "a", Value: 1}).Error(context.Background(), "y")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
		"":        "info",
	}
	for in, want := range tests {
		if got := ParseLogLevel(in).String(); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
