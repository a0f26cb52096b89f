// Package observe provides the logging, tracing and metrics used around
// remote API calls and the memoization cache.
//
// Logging goes through the Logger interface, backed by zap. Tracing and
// metrics use OpenTelemetry; Observer owns the providers and Middleware
// wraps individual operations with a span, counters and a log line.
package observe
