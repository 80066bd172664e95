// Package resilience provides the failure-handling primitives used by the
// request client.
//
// # Patterns
//
//   - Retry: re-runs a failed operation with exponential, linear or constant
//     backoff. A RetryIf predicate decides which failures are worth another
//     attempt.
//
//   - Timeout: bounds a single attempt. When the deadline fires the attempt
//     context is cancelled and the caller gets ErrTimeout immediately, without
//     waiting for the operation to notice.
//
//   - Circuit Breaker: stops sending traffic to an upstream after repeated
//     failures and probes it again after a cool-down.
//
//   - Rate Limiter: token bucket on top of golang.org/x/time/rate.
//
//   - Bulkhead: caps concurrent operations with golang.org/x/sync/semaphore.
//
// # Usage
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  4,
//	    InitialDelay: time.Second,
//	    Multiplier:   2.0,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return send(ctx)
//	})
//
// The timeout is applied per attempt: each retry gets a fresh deadline.
package resilience
