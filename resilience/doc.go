// Package resilience hardens calls to remote services.
//
// The review platform is paginated, rate limited and occasionally flaky.
// This package provides the patterns used around each request:
//
//   - Rate Limiter: keeps the request rate under the platform's limit.
//   - Circuit Breaker: stops hammering a service that keeps failing.
//   - Retry: retries transient failures with exponential, linear or
//     constant backoff, up to a bounded number of attempts.
//   - Timeout: bounds each attempt.
//
// Errors can be marked as not worth retrying with Permanent.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate:  2, // requests per second
//	        Burst: 4,
//	    })),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  4,
//	        InitialDelay: time.Second,
//	        RetryIf:      openreview.IsRetryable,
//	    })),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return fetchPage(ctx)
//	})
package resilience
