package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render/pipeline"
	"github.com/jonwraymond/pinog/resilience"
)

// WorkerSubcommand is the argument that starts the worker side.
const WorkerSubcommand = "render-worker"

// Config configures a Renderer.
type Config struct {
	// Width and Height are the card size.
	// Default: 1200x800
	Width  int `koanf:"width" validate:"gte=0,lte=4096"`
	Height int `koanf:"height" validate:"gte=0,lte=4096"`

	// Timeout is the hard wall-clock limit for one worker.
	// Default: 10s
	Timeout time.Duration `koanf:"timeout"`

	// MaxConcurrent bounds simultaneous workers.
	// Default: 4
	MaxConcurrent int `koanf:"max_concurrent" validate:"gte=0"`

	// RatePerSecond and Burst bound how fast workers are spawned.
	// Default: 20/s, burst 10
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"`
	Burst         int     `koanf:"burst" validate:"gte=0"`

	// BaseURL resolves root-relative asset URLs in UI code.
	// Default: http://localhost:3000
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// Command is the worker argv. Default: the current executable with
	// WorkerSubcommand.
	Command []string `koanf:"command"`

	// Env is appended to the worker environment, which otherwise only
	// carries PATH, HOME, locale and temp-dir variables.
	Env []string `koanf:"env"`
}

func (c *Config) applyDefaults() {
	if c.Width <= 0 {
		c.Width = pipeline.DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = pipeline.DefaultHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 20
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3000"
	}
}

// Request is one render.
type Request struct {
	PinID  string
	UICode string
	Props  map[string]any
	Format pipeline.Format
}

// Renderer runs renders in worker processes.
//
// Contract:
//   - Concurrency: Render is safe for concurrent use.
//   - Context: cancelling ctx kills the worker.
//   - Errors: every failure wraps ErrRenderFailed.
type Renderer struct {
	cfg    Config
	exec   *resilience.Executor
	mw     *observe.Middleware
	logger observe.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(r *Renderer) { r.mw = mw }
}

// WithLogger sets the logger used for worker stderr.
func WithLogger(l observe.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New creates a Renderer.
func New(cfg Config, opts ...Option) (*Renderer, error) {
	cfg.applyDefaults()
	if len(cfg.Command) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoCommand, err)
		}
		cfg.Command = []string{self, WorkerSubcommand}
	}
	r := &Renderer{
		cfg: cfg,
		exec: resilience.NewExecutor(
			resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
				MaxConcurrent: cfg.MaxConcurrent,
				MaxWait:       cfg.Timeout,
			})),
			resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Rate:        cfg.RatePerSecond,
				Burst:       cfg.Burst,
				WaitOnLimit: true,
				MaxWait:     cfg.Timeout,
			})),
		),
		mw:     observe.NopMiddleware(),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Render produces image bytes for req.
func (r *Renderer) Render(ctx context.Context, req Request) ([]byte, error) {
	msg, err := json.Marshal(pipeline.Input{
		UICode:  req.UICode,
		Props:   req.Props,
		Width:   r.cfg.Width,
		Height:  r.cfg.Height,
		BaseURL: r.cfg.BaseURL,
		Format:  req.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode input: %w", ErrRenderFailed, err)
	}

	var out []byte
	op := observe.Operation{Component: "render", Name: "worker", PinID: req.PinID}
	err = r.mw.Run(ctx, op, func(ctx context.Context) error {
		return r.exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = r.spawn(ctx, msg)
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, ErrRenderFailed) {
			err = fmt.Errorf("%w: %w", ErrRenderFailed, err)
		}
		return nil, err
	}
	return out, nil
}

func (r *Renderer) spawn(ctx context.Context, msg []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, r.cfg.Timeout, ErrWorkerTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Command[0], r.cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(msg)
	var stdout bytes.Buffer
	stderr := &tailBuffer{max: 4096}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.Env = append(workerEnv(), r.cfg.Env...)
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		r.logger.Warn(ctx, "render worker killed",
			observe.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()},
			observe.Field{Key: "stderr", Value: stderr.String()})
		if errors.Is(context.Cause(ctx), ErrWorkerTimeout) {
			return nil, fmt.Errorf("%w: %w after %s", ErrRenderFailed, ErrWorkerTimeout, r.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, ctx.Err())
	}
	if err != nil {
		r.logger.Error(ctx, "render worker failed", observe.Err(err),
			observe.Field{Key: "stderr", Value: stderr.String()})
		return nil, fmt.Errorf("%w: %w: %s", ErrRenderFailed, err, lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrRenderFailed)
	}
	if s := stderr.String(); s != "" {
		r.logger.Debug(ctx, "render worker stderr", observe.Field{Key: "stderr", Value: s})
	}
	return stdout.Bytes(), nil
}

// inheritedEnv lists the variables a worker sees from the server process.
// Everything else, credentials included, must be passed through Config.Env.
var inheritedEnv = []string{"PATH", "HOME", "TMPDIR", "TMP", "TEMP", "LANG", "LC_ALL", "TZ", "SYSTEMROOT"}

func workerEnv() []string {
	env := make([]string, 0, len(inheritedEnv))
	for _, name := range inheritedEnv {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return strings.TrimSpace(string(t.buf)) }

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
