package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/resilience"
)

// Mode selects the executor implementation.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeRemote  Mode = "remote"
)

// Result is the outcome of one execution.
type Result struct {
	Result map[string]any `json:"result"`
	Logs   []string       `json:"logs"`
}

// Executor runs data code.
//
// Contract:
//   - Concurrency: Execute is safe for concurrent use.
//   - Context: Execute returns no later than shortly after ctx is done.
//   - Errors: the returned Result carries the logs collected so far even
//     when err is non-nil, so callers can surface them.
type Executor interface {
	Execute(ctx context.Context, code string, params map[string]any) (*Result, error)
}

// Config configures New.
type Config struct {
	// Mode is sandbox or remote.
	// Default: sandbox
	Mode Mode `koanf:"mode" validate:"omitempty,oneof=sandbox remote"`

	// URL is the remote execution endpoint.
	URL string `koanf:"url" validate:"required_if=Mode remote,omitempty,url"`

	// Timeout bounds one execution.
	// Default: 5s
	Timeout time.Duration `koanf:"timeout"`

	// AllowFetch exposes fetch to sandboxed code.
	AllowFetch bool `koanf:"allow_fetch"`
}

// Option configures the executors built by New.
type Option func(*options)

type options struct {
	mw   *observe.Middleware
	exec *resilience.Executor
}

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) { o.mw = mw }
}

// WithExecutor wraps remote calls in exec. Ignored by the sandbox.
func WithExecutor(exec *resilience.Executor) Option {
	return func(o *options) { o.exec = exec }
}

// New builds the executor selected by cfg.Mode.
func New(cfg Config, opts ...Option) (Executor, error) {
	o := options{mw: observe.NopMiddleware()}
	for _, opt := range opts {
		opt(&o)
	}

	var impl Executor
	switch cfg.Mode {
	case "", ModeSandbox:
		sopts := []SandboxOption{WithTimeout(cfg.Timeout)}
		if cfg.AllowFetch {
			sopts = append(sopts, WithFetch(nil))
		}
		impl = NewSandbox(sopts...)
	case ModeRemote:
		r, err := NewRemote(cfg.URL, cfg.Timeout, o.exec)
		if err != nil {
			return nil, err
		}
		impl = r
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	return &instrumented{next: impl, mw: o.mw}, nil
}

type instrumented struct {
	next Executor
	mw   *observe.Middleware
}

func (i *instrumented) Execute(ctx context.Context, code string, params map[string]any) (*Result, error) {
	var res *Result
	err := i.mw.Run(ctx, observe.Operation{Component: "executor", Name: "execute"}, func(ctx context.Context) error {
		var err error
		res, err = i.next.Execute(ctx, code, params)
		return err
	})
	i.mw.Metrics().RecordExecution(ctx, outcome(err))
	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
