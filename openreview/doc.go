// Package openreview is a small client for the OpenReview API v2.
//
// It covers the endpoints needed to enumerate conference submissions:
// POST /login and GET /notes. Requests go through a retrying HTTP client
// and, when configured, a resilience.Executor that adds rate limiting,
// a circuit breaker and per-attempt timeouts.
package openreview
