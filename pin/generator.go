package pin

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/chain"
	"github.com/jonwraymond/pinog/content"
	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render"
	"github.com/jonwraymond/pinog/render/pipeline"
)

// PreviewTitle is the title of the preview Pin.
const PreviewTitle = "Preview"

// Pins resolves on-chain Pins.
type Pins interface {
	ResolvePin(ctx context.Context, id uint64, version *big.Int) (*chain.Pin, error)
}

// Renderer renders UI code with props.
type Renderer interface {
	Render(ctx context.Context, req render.Request) ([]byte, error)
}

// Request is one card generation.
type Request struct {
	PinID uint64

	// Decision is the authorization outcome for the request's bundle.
	Decision auth.Decision

	// Version is an explicit ver query value. Only bundle-less requests
	// honor it.
	Version string

	// Overrides are the non-reserved query parameters.
	Overrides map[string]string

	Format pipeline.Format
}

// Job is a resolved render: the UI code and its final props.
type Job struct {
	UICode string
	Props  map[string]any
}

// Generator runs the generation pipeline.
//
// Contract:
//   - Concurrency: Generate is safe for concurrent use.
//   - Context: cancellation propagates to chain reads, content fetches,
//     data execution and the render worker.
//   - Errors: ErrPinNotFound, ErrNoUICode and ErrRenderFailed classify
//     failures; data code errors are logged and never returned.
type Generator struct {
	pins      Pins
	manifests content.Resolver
	exec      executor.Executor
	renderer  Renderer

	previewID uint64
	mw        *observe.Middleware
	logger    observe.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(g *Generator) {
		if mw != nil {
			g.mw = mw
		}
	}
}

// WithLogger sets the logger for degraded steps.
func WithLogger(l observe.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPreviewPinID sets the id of the preview Pin. Default: 0
func WithPreviewPinID(id uint64) Option {
	return func(g *Generator) { g.previewID = id }
}

// New creates a Generator.
func New(pins Pins, manifests content.Resolver, exec executor.Executor, renderer Renderer, opts ...Option) (*Generator, error) {
	switch {
	case pins == nil:
		return nil, fmt.Errorf("%w: pins", ErrMissingDependency)
	case manifests == nil:
		return nil, fmt.Errorf("%w: manifests", ErrMissingDependency)
	case exec == nil:
		return nil, fmt.Errorf("%w: executor", ErrMissingDependency)
	case renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingDependency)
	}
	g := &Generator{
		pins:      pins,
		manifests: manifests,
		exec:      exec,
		renderer:  renderer,
		mw:        observe.NopMiddleware(),
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate resolves and renders the card for req.
func (g *Generator) Generate(ctx context.Context, req Request) ([]byte, error) {
	pinID := strconv.FormatUint(req.PinID, 10)
	var out []byte
	err := g.mw.Run(ctx, observe.Operation{Component: "pin", Name: "generate", PinID: pinID}, func(ctx context.Context) error {
		job, err := g.Prepare(ctx, req)
		if err != nil {
			return err
		}
		out, err = g.renderer.Render(ctx, render.Request{
			PinID:  pinID,
			UICode: job.UICode,
			Props:  job.Props,
			Format: req.Format,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRenderFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prepare resolves the UI code and final props without rendering.
func (g *Generator) Prepare(ctx context.Context, req Request) (*Job, error) {
	p, m, err := g.source(ctx, req)
	if err != nil {
		return nil, err
	}

	var uiCode, dataCode string
	var previewData map[string]any
	base := map[string]any{}
	if m != nil {
		uiCode, dataCode = m.UICode, m.DataCode
		previewData = m.PreviewData
		base = m.BaseProps()
	}
	overrides := make(map[string]any, len(req.Overrides))
	for k, v := range req.Overrides {
		overrides[k] = v
	}

	if b := req.Decision.Bundle; b != nil {
		if b.Version != "" {
			vm := g.versionManifest(ctx, req.PinID, b.Version)
			dataCode = ""
			if vm != nil {
				dataCode = vm.DataCode
				if vm.UICode != "" {
					uiCode = vm.UICode
					base = vm.BaseProps()
				}
			}
		}
		if b.Params != nil {
			if dataCode != "" {
				base = merge(base, g.execute(ctx, req.PinID, dataCode, merge(b.Params, overrides)))
			} else {
				base = merge(base, b.Params)
			}
		}
	} else {
		params := merge(previewData, overrides)
		if dataCode != "" {
			base = merge(base, g.execute(ctx, req.PinID, dataCode, params))
		} else {
			base = merge(base, params)
		}
	}

	if uiCode == "" {
		return nil, fmt.Errorf("%w: pin %d", ErrNoUICode, req.PinID)
	}
	props := merge(base, map[string]any{"title": p.Title, "tagline": p.Tagline})
	return &Job{UICode: uiCode, Props: props}, nil
}

// source returns the Pin and the manifest of the version the request
// selects. A Pin without published content yields a nil manifest.
func (g *Generator) source(ctx context.Context, req Request) (*chain.Pin, *content.Manifest, error) {
	if req.PinID == g.previewID {
		return &chain.Pin{ID: req.PinID, Title: PreviewTitle}, nil, nil
	}

	var version *big.Int
	if req.Version != "" && !req.Decision.Authorized() {
		if v, ok := numericVersion(req.Version); ok {
			version = v
		} else {
			g.logger.Debug(ctx, "ignoring non-numeric version", observe.Field{Key: "version", Value: req.Version})
		}
	}

	p, err := g.pins.ResolvePin(ctx, req.PinID, version)
	if err != nil {
		if errors.Is(err, chain.ErrPinNotFound) || errors.Is(err, chain.ErrVersionNotFound) {
			return nil, nil, fmt.Errorf("%w: %w", ErrPinNotFound, err)
		}
		return nil, nil, err
	}
	if p.ContentID == "" {
		return p, nil, nil
	}
	m, err := g.manifests.Fetch(ctx, p.ContentID)
	if err != nil {
		g.logger.Warn(ctx, "manifest unavailable",
			observe.Field{Key: "pin_id", Value: req.PinID},
			observe.Field{Key: "content_id", Value: p.ContentID},
			observe.Err(err))
		return p, nil, nil
	}
	return p, m, nil
}

// versionManifest resolves a bundle version. Numeric versions are looked
// up on chain; anything else is taken as a content identifier.
func (g *Generator) versionManifest(ctx context.Context, pinID uint64, ver string) *content.Manifest {
	contentID := ver
	if v, ok := numericVersion(ver); ok {
		p, err := g.pins.ResolvePin(ctx, pinID, v)
		if err != nil {
			g.logger.Warn(ctx, "bundle version unavailable",
				observe.Field{Key: "pin_id", Value: pinID},
				observe.Field{Key: "version", Value: ver},
				observe.Err(err))
			return nil
		}
		contentID = p.ContentID
	}
	if contentID == "" {
		return nil
	}
	m, err := g.manifests.Fetch(ctx, contentID)
	if err != nil {
		g.logger.Warn(ctx, "bundle manifest unavailable",
			observe.Field{Key: "pin_id", Value: pinID},
			observe.Field{Key: "content_id", Value: contentID},
			observe.Err(err))
		return nil
	}
	return m
}

func (g *Generator) execute(ctx context.Context, pinID uint64, code string, params map[string]any) map[string]any {
	res, err := g.exec.Execute(ctx, code, params)
	if err != nil {
		fields := []observe.Field{{Key: "pin_id", Value: pinID}, observe.Err(err)}
		if res != nil && len(res.Logs) > 0 {
			fields = append(fields, observe.Field{Key: "logs", Value: res.Logs})
		}
		g.logger.Warn(ctx, "data code failed, rendering without result", fields...)
		return nil
	}
	if res == nil {
		return nil
	}
	return res.Result
}

func numericVersion(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// merge overlays layers left to right into a new map.
func merge(layers ...map[string]any) map[string]any {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(map[string]any, n)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
