package resilience

import (
	"context"
	"time"
)

// Policy is implemented by every pattern in this package.
type Policy interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

var (
	_ Policy = (*RateLimiter)(nil)
	_ Policy = (*Bulkhead)(nil)
	_ Policy = (*CircuitBreaker)(nil)
	_ Policy = (*Retry)(nil)
	_ Policy = (*Timeout)(nil)
)

// Executor runs a logical request through its configured policies, from
// outermost to innermost:
//
//	rate limiter -> bulkhead -> circuit breaker -> retry -> timeout -> op
//
// The limiter and the bulkhead admit a call once however many attempts it
// makes. The breaker records one outcome per call. The timeout bounds each
// attempt.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. Nil components passed to the options are
// skipped.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds call admission by rate.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a bound on concurrent calls.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds every attempt. A non-positive duration leaves attempts
// unbounded.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = nil
		if timeout > 0 {
			e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
		}
	}
}

// policies lists the configured policies innermost first.
func (e *Executor) policies() []Policy {
	var ps []Policy
	if e.timeout != nil {
		ps = append(ps, e.timeout)
	}
	if e.retry != nil {
		ps = append(ps, e.retry)
	}
	if e.circuitBreaker != nil {
		ps = append(ps, e.circuitBreaker)
	}
	if e.bulkhead != nil {
		ps = append(ps, e.bulkhead)
	}
	if e.rateLimiter != nil {
		ps = append(ps, e.rateLimiter)
	}
	return ps
}

// Execute runs op through every configured policy.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	for _, p := range e.policies() {
		p := p // per-iteration copy; module targets go 1.21 loop semantics
		inner := run
		run = func(ctx context.Context) error {
			return p.Execute(ctx, inner)
		}
	}
	return run(ctx)
}
