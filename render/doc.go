// Package render supervises render workers.
//
// Each render runs in a fresh worker process: the Renderer writes one JSON
// message (uiCode, props, width, height, baseUrl) to the worker's stdin and
// reads the encoded image from its stdout. The worker is killed when the
// render timeout expires. A non-zero exit, empty output or timeout is
// reported as ErrRenderFailed.
//
// By default the worker is the current binary run with the render-worker
// subcommand. The worker side of the protocol lives in render/pipeline.
//
// Concurrent renders are bounded by a bulkhead and a token-bucket rate
// limiter from the resilience package.
//
// Placeholder returns small labeled PNGs served in place of a card when
// generation fails.
package render
