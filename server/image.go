package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/pin"
	"github.com/jonwraymond/pinog/render"
	"github.com/jonwraymond/pinog/render/pipeline"
	"github.com/jonwraymond/pinog/swr"
)

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "pinId")
	pinID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "Invalid Pin ID", http.StatusBadRequest)
		return
	}
	id := strconv.FormatUint(pinID, 10)

	q := r.URL.Query()
	decision := s.deps.Authorizer.Authorize(ctx, auth.Request{
		PinID:     pinID,
		Bundle:    q.Get("b"),
		Signature: q.Get("sig"),
	})
	overrides, bust := cache.SplitQuery(q)

	version := decision.CacheVersion()
	explicit := ""
	if !decision.Authorized() {
		if explicit = q.Get("ver"); explicit != "" {
			version = explicit
		}
	}
	key, err := s.deps.Keyer.Key(cache.KeyInput{
		PinID:      id,
		Version:    version,
		ParamsHash: decision.ParamsHash,
		Overrides:  overrides,
		Timestamp:  decision.CacheTimestamp(),
	})
	if err != nil {
		s.fail(ctx, w, pinID, err)
		return
	}

	// The cache-bust value reaches generation but never the key.
	genOverrides := overrides
	if bust {
		genOverrides = make(map[string]string, len(overrides)+1)
		for k, v := range overrides {
			genOverrides[k] = v
		}
		genOverrides[cache.CacheBustKey] = q.Get(cache.CacheBustKey)
	}
	req := pin.Request{
		PinID:     pinID,
		Decision:  decision,
		Version:   explicit,
		Overrides: genOverrides,
		Format:    pipeline.FormatPNG,
	}
	resp, err := s.deps.Coordinator.Serve(ctx, swr.Request{
		PinID:        id,
		Key:          key,
		Bundle:       decision.Authorized(),
		ForceRefresh: bust,
		Generate: func(ctx context.Context) ([]byte, error) {
			return s.deps.Generator.Generate(ctx, req)
		},
	})
	if err != nil {
		s.fail(ctx, w, pinID, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("X-Cache", string(resp.Status))
	h.Set("Cache-Control", resp.CacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

// classify maps a generation failure to a status code and placeholder label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pin.ErrPinNotFound):
		return http.StatusNotFound, render.LabelNotFound
	case errors.Is(err, pin.ErrNoUICode):
		return http.StatusUnprocessableEntity, render.LabelNoCode
	case errors.Is(err, render.ErrRenderFailed):
		return http.StatusInternalServerError, render.LabelRenderError
	case errors.Is(err, swr.ErrPollTimeout):
		return http.StatusGatewayTimeout, render.LabelTimeout
	default:
		return http.StatusInternalServerError, render.LabelError
	}
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, pinID uint64, err error) {
	code, label := classify(err)
	fields := []observe.Field{{Key: "pin_id", Value: pinID}, {Key: "status", Value: code}, observe.Err(err)}
	if code >= http.StatusInternalServerError {
		s.logger.Error(ctx, "card generation failed", fields...)
	} else {
		s.logger.Info(ctx, "card unavailable", fields...)
	}
	writePlaceholder(w, code, label)
}

func writePlaceholder(w http.ResponseWriter, code int, label string) {
	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(render.Placeholder(label))
}
