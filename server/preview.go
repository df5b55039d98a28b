package server

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render"
	"github.com/jonwraymond/pinog/render/pipeline"
)

const maxPreviewBody = 1 << 20

type previewRequest struct {
	DataCode string         `json:"dataCode"`
	UICode   string         `json:"uiCode"`
	Params   map[string]any `json:"params"`
	Mode     string         `json:"mode"`
}

type executeRequest struct {
	Code   string         `json:"code"`
	Params map[string]any `json:"params"`
}

type executeResponse struct {
	Result map[string]any `json:"result"`
	Logs   []string       `json:"logs"`
	Error  string         `json:"error,omitempty"`
}

// handlePreview renders code that has not been published. mode=data
// returns the data code result instead of an image.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req previewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	var result map[string]any
	var logs []string
	if req.DataCode != "" {
		res, err := s.deps.Executor.Execute(ctx, req.DataCode, req.Params)
		if res != nil {
			result, logs = res.Result, res.Logs
		}
		if err != nil {
			s.logger.Warn(ctx, "preview data code failed", principal(ctx), observe.Err(err))
			if req.Mode == "data" {
				writeJSON(w, http.StatusInternalServerError, executeResponse{Logs: append(logs, err.Error()), Error: "Execution failed"})
				return
			}
		}
	}
	if req.Mode == "data" {
		writeJSON(w, http.StatusOK, executeResponse{Result: result, Logs: nonNil(logs)})
		return
	}

	if req.UICode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing uiCode"})
		return
	}
	props := make(map[string]any, len(req.Params)+len(result))
	for k, v := range req.Params {
		props[k] = v
	}
	for k, v := range result {
		props[k] = v
	}
	body, err := s.deps.Renderer.Render(ctx, render.Request{
		PinID:  "preview",
		UICode: req.UICode,
		Props:  props,
		Format: pipeline.FormatPNG,
	})
	if err != nil {
		s.logger.Error(ctx, "preview render failed", principal(ctx), observe.Err(err))
		writePlaceholder(w, http.StatusInternalServerError, render.LabelRenderError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req executeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing code"})
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	res, err := s.deps.Executor.Execute(ctx, req.Code, req.Params)
	var logs []string
	if res != nil {
		logs = res.Logs
	}
	if err != nil {
		s.logger.Warn(ctx, "execute failed", principal(ctx), observe.Err(err))
		writeJSON(w, http.StatusInternalServerError, executeResponse{Logs: append(logs, err.Error()), Error: "Execution failed"})
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{Result: res.Result, Logs: nonNil(logs)})
}

// principal names the gated caller, or "anonymous" when the gate is off.
func principal(ctx context.Context) observe.Field {
	name := "anonymous"
	if id := auth.IdentityFromContext(ctx); id != nil {
		name = id.Principal
	}
	return observe.Field{Key: "principal", Value: name}
}

func nonNil(logs []string) []string {
	if logs == nil {
		return []string{}
	}
	return logs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
