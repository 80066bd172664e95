// Package client sends JSON requests to an HTTP API with per-attempt
// timeouts, bounded exponential backoff retry and a time-bounded response
// cache for GET requests.
//
// One Client owns its configuration and its cache; nothing is shared across
// instances. Every call either returns the decoded payload or a *Error with
// a normalized shape:
//
//	{"message": "...", "status": 503, "code": "...", "details": ..., "timestamp": "2026-01-02T15:04:05Z"}
//
// Retry accounting follows three rules: a status in 400-499 is never
// retried, every other failure is retried until retries+1 attempts were
// made, and the wait after failed attempt i (zero-based) is RetryDelay*2^i.
// No wait follows the final attempt.
package client
