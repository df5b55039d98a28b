package executor

import "errors"

var (
	// ErrMissingCode is returned when no code is supplied.
	ErrMissingCode = errors.New("executor: missing code")

	// ErrNoMain is returned when the code neither defines main nor sets a response.
	ErrNoMain = errors.New("executor: main function not found")

	// ErrTimeout is returned when execution outlives its deadline.
	ErrTimeout = errors.New("executor: execution timed out")

	// ErrExecution wraps errors thrown by the code.
	ErrExecution = errors.New("executor: execution failed")

	// ErrInvalidResult is returned when the result is not an object.
	ErrInvalidResult = errors.New("executor: result is not an object")

	// ErrRemote is returned when the remote service fails.
	ErrRemote = errors.New("executor: remote execution failed")

	// ErrUnknownMode is returned by New for an unsupported mode.
	ErrUnknownMode = errors.New("executor: unknown mode")
)
