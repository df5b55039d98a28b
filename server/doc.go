// Package server exposes the card service over HTTP.
//
// Routes:
//
//	GET  /image/{pinId}     card PNG through the SWR cache (alias /og/{pinId})
//	POST /render/preview    render unsaved code (alias /og/preview)
//	POST /execute           run data code and return {result, logs}
//	GET  /health            liveness
//	GET  /health/ready      readiness, degraded still passes
//	GET  /health/detailed   per-check report
//	GET  /metrics           Prometheus exposition
//
// Card responses carry X-Cache (HIT-FRESH, HIT-SWR, HIT-POLL or MISS) and
// a Cache-Control header from the cache policy. Failures are answered with
// a labeled placeholder PNG so link unfurlers always receive an image.
package server
