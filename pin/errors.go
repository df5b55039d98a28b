package pin

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/pinog/render"
)

var (
	// ErrPinNotFound is returned when the registry has no store for the id.
	ErrPinNotFound = errors.New("pin: PIN_NOT_FOUND")

	// ErrNoUICode is returned when neither the Pin nor the bundle supplies UI code.
	ErrNoUICode = errors.New("pin: NO_UI_CODE")

	// ErrRenderFailed wraps render.ErrRenderFailed.
	ErrRenderFailed = fmt.Errorf("pin: %w", render.ErrRenderFailed)

	// ErrMissingDependency is returned by New when a collaborator is nil.
	ErrMissingDependency = errors.New("pin: missing dependency")
)
