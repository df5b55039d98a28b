package swr

import "errors"

var (
	// ErrPollTimeout is returned when another generator held the lock and
	// no entry appeared within the poll budget.
	ErrPollTimeout = errors.New("swr: timed out waiting for concurrent generation")

	// ErrNoGenerator is returned when a request carries no generator.
	ErrNoGenerator = errors.New("swr: generator is required")
)
