package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/health"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/pin"
	"github.com/jonwraymond/pinog/swr"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("server: missing dependency")

// Generator produces card bytes for a request.
type Generator interface {
	Generate(ctx context.Context, req pin.Request) ([]byte, error)
}

// Config configures the HTTP surface.
type Config struct {
	CORSOrigins []string

	// PreviewRateLimit is requests per minute per client IP on the preview
	// and execute routes. Zero disables it.
	PreviewRateLimit int
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Authorizer  auth.Authorizer
	Keyer       cache.Keyer
	Coordinator *swr.Coordinator
	Generator   Generator
	Executor    executor.Executor
	Renderer    pin.Renderer

	// Gate guards the preview and execute routes. Nil leaves them open.
	Gate auth.Authenticator

	// Health backs the readiness routes. Nil reports only liveness.
	Health *health.Aggregator

	// Metrics serves /metrics when set.
	Metrics http.Handler

	Logger observe.Logger
}

// Server holds the routed handler.
type Server struct {
	cfg     Config
	deps    Deps
	logger  observe.Logger
	handler http.Handler
}

// New builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Authorizer == nil, deps.Keyer == nil, deps.Coordinator == nil, deps.Generator == nil:
		return nil, ErrMissingDependency
	case deps.Executor == nil, deps.Renderer == nil:
		return nil, ErrMissingDependency
	}
	if deps.Logger == nil {
		deps.Logger = observe.NopLogger()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, deps: deps, logger: deps.Logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", requestIDHeader},
		ExposedHeaders: []string{"X-Cache", requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/image/{pinId}", s.handleImage)
	r.Get("/og/{pinId}", s.handleImage)

	r.Group(func(r chi.Router) {
		if s.cfg.PreviewRateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.PreviewRateLimit, time.Minute))
		}
		r.Use(auth.RequireAuth(s.deps.Gate, s.logger))
		r.Post("/render/preview", s.handlePreview)
		r.Post("/og/preview", s.handlePreview)
		r.Post("/execute", s.handleExecute)
	})

	r.Get("/health", health.LivenessHandler())
	if s.deps.Health != nil {
		r.Get("/health/ready", health.ReadinessHandler(s.deps.Health))
		r.Get("/health/detailed", health.DetailedHandler(s.deps.Health))
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}
	return r
}
