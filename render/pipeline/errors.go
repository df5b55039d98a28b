package pipeline

import "errors"

var (
	// ErrInput is returned when the worker message cannot be decoded.
	ErrInput = errors.New("pipeline: invalid input")

	// ErrFormat is returned for an unknown output format.
	ErrFormat = errors.New("pipeline: unknown format")
)
