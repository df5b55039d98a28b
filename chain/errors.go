package chain

import "errors"

var (
	// ErrPinNotFound is returned when the registry has no store for an id.
	ErrPinNotFound = errors.New("chain: pin not found")

	// ErrVersionNotFound is returned when a store has no content for a version.
	ErrVersionNotFound = errors.New("chain: version not found")

	// ErrNoRegistry is returned when no registry address is configured.
	ErrNoRegistry = errors.New("chain: registry address not configured")
)
