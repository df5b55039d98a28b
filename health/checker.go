package health

import (
	"context"
	"time"
)

// Status is the health of a component.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Err      error
}

func Healthy(message string) Result { return Result{Status: StatusHealthy, Message: message} }

func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Err: err}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// With returns r with details attached.
func (r Result) With(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports on one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

func (f funcChecker) Name() string { return f.name }
func (f funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }

// CheckFunc adapts fn to a Checker.
func CheckFunc(name string, fn func(context.Context) Result) Checker {
	return funcChecker{name: name, fn: fn}
}
