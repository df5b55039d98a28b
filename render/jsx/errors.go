package jsx

import "errors"

var (
	// ErrTranspile is returned when esbuild rejects the source.
	ErrTranspile = errors.New("jsx: transpile failed")

	// ErrNoDefaultExport is returned when the module exports no component.
	ErrNoDefaultExport = errors.New("jsx: no default export found in widget code")

	// ErrEvaluate wraps exceptions thrown while evaluating or rendering.
	ErrEvaluate = errors.New("jsx: evaluation failed")

	// ErrTimeout is returned when evaluation outlives its deadline.
	ErrTimeout = errors.New("jsx: evaluation timed out")

	// ErrTooDeep is returned for element trees nested beyond MaxDepth.
	ErrTooDeep = errors.New("jsx: element tree too deep")
)
