// Package httpclient executes HTTP requests against the vmc control plane.
//
// A Client adds the auth token obtained from a TokenProvider, retries 5xx
// responses and transient network errors with exponential backoff, caps the
// size of response bodies, and records Prometheus metrics for every attempt.
// A per-host circuit breaker (sony/gobreaker) and a per-host client-side rate
// limit (golang.org/x/time/rate) can be enabled with WithCircuitBreaker and
// WithRateLimit.
//
// 4xx responses are never retried and are returned to the caller as-is;
// interpreting status codes is the caller's job.
package httpclient
