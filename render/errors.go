package render

import "errors"

var (
	// ErrRenderFailed is returned when a worker crashes, exits non-zero,
	// produces no output or times out.
	ErrRenderFailed = errors.New("render: RENDER_FAILED")

	// ErrWorkerTimeout is wrapped into ErrRenderFailed when the worker was
	// killed for exceeding the timeout.
	ErrWorkerTimeout = errors.New("render: worker timed out")

	// ErrNoCommand is returned when no worker command can be determined.
	ErrNoCommand = errors.New("render: no worker command")
)
