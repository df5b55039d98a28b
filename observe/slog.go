package observe

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler implements slog.Handler on top of zerolog so libraries that
// only speak slog (the supervisor event hook) share the service log stream.
type SlogHandler struct {
	z      zerolog.Logger
	attrs  []slog.Attr
	groups []string
}

// NewSlogHandler returns a handler writing through l. Loggers not created by
// this package produce a handler that discards everything.
func NewSlogHandler(l Logger) *SlogHandler {
	if zl, ok := l.(*zeroLogger); ok {
		return &SlogHandler{z: zl.z}
	}
	return &SlogHandler{z: zerolog.Nop()}
}

// NewSlogLogger is a convenience wrapper around NewSlogHandler.
func NewSlogLogger(l Logger) *slog.Logger {
	return slog.New(NewSlogHandler(l))
}

func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.z.GetLevel() <= slogToZerolog(level)
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler
func (h *SlogHandler) Handle(ctx context.Context, record slog.Record) error {
	ev := h.z.WithLevel(slogToZerolog(record.Level))
	if ev == nil {
		return nil
	}
	if id := RequestIDFromContext(ctx); id != "" {
		ev = ev.Str("request_id", id)
	}
	for _, a := range h.attrs {
		ev = addSlogAttr(ev, a, h.groups)
	}
	record.Attrs(func(a slog.Attr) bool {
		ev = addSlogAttr(ev, a, h.groups)
		return true
	})
	ev.Msg(record.Message)
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SlogHandler{z: h.z, attrs: merged, groups: h.groups}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &SlogHandler{z: h.z, attrs: h.attrs, groups: groups}
}

func addSlogAttr(ev *zerolog.Event, a slog.Attr, groups []string) *zerolog.Event {
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return ev.Str(key, v.String())
	case slog.KindInt64:
		return ev.Int64(key, v.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, v.Float64())
	case slog.KindBool:
		return ev.Bool(key, v.Bool())
	case slog.KindDuration:
		return ev.Dur(key, v.Duration())
	case slog.KindTime:
		return ev.Time(key, v.Time())
	case slog.KindGroup:
		nested := append(append([]string{}, groups...), a.Key)
		for _, ga := range v.Group() {
			ev = addSlogAttr(ev, ga, nested)
		}
		return ev
	default:
		if err, ok := v.Any().(error); ok {
			return ev.AnErr(key, err)
		}
		return ev.Interface(key, v.Any())
	}
}

func slogToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var _ slog.Handler = (*SlogHandler)(nil)
