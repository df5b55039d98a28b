package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the upstream in state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30s
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of trial calls allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(name string, from, to State)

	// IsFailure determines if an error counts against the upstream.
	// Default: non-nil errors that are not Permanent and not context cancellation.
	IsFailure func(err error) bool
}

// CircuitBreaker is a consecutive-failure breaker backed by sony/gobreaker.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func defaultIsFailure(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}

	maxFailures := uint32(config.MaxFailures)
	isFailure := config.IsFailure
	onChange := config.OnStateChange

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: uint32(config.HalfOpenMaxRequests),
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !isFailure(err)
		},
	}
	if onChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onChange(name, fromGobreaker(from), fromGobreaker(to))
		}
	}

	return &CircuitBreaker{
		config: config,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Execute runs op through the breaker. Rejected calls return ErrCircuitOpen.
func (c *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns the current state.
func (c *CircuitBreaker) State() State {
	return fromGobreaker(c.cb.State())
}

// Name returns the configured upstream name.
func (c *CircuitBreaker) Name() string {
	return c.config.Name
}
