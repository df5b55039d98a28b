package health

import "errors"

var (
	// ErrCheckTimeout is reported by a check that outlived the aggregate deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrThreshold is reported when a measured value crosses its critical limit.
	ErrThreshold = errors.New("health: critical threshold exceeded")
)
