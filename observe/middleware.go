package observe

import (
	"context"
	"time"
)

// RequestFunc performs one logical request and returns the raw payload.
type RequestFunc func(ctx context.Context, meta RequestMeta) ([]byte, error)

// Middleware wraps logical requests with tracing, metrics and logging, and
// exposes per-attempt and cache hooks for the client.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Context: Wrap propagates the span context to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: payloads pass through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with a span, request metrics and a completion log line.
func (m *Middleware) Wrap(fn RequestFunc) RequestFunc {
	return func(ctx context.Context, meta RequestMeta) ([]byte, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		payload, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordRequest(ctx, meta, duration, err)

		logger := m.logger.WithRequest(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err})
			logger.Error(ctx, "request failed", fields...)
		} else {
			fields = append(fields, Field{Key: "bytes", Value: len(payload)})
			logger.Info(ctx, "request completed", fields...)
		}

		return payload, err
	}
}

// Attempt records the outcome of one transport attempt.
func (m *Middleware) Attempt(ctx context.Context, meta RequestMeta, attempt int, err error) {
	m.metrics.RecordAttempt(ctx, meta, attempt, err)
	if err != nil {
		m.logger.WithRequest(meta).Warn(ctx, "attempt failed",
			Field{Key: "attempt", Value: attempt},
			Field{Key: "error", Value: err},
		)
	}
}

// Retry logs the scheduled wait before the next attempt.
func (m *Middleware) Retry(ctx context.Context, meta RequestMeta, attempt int, delay time.Duration) {
	m.logger.WithRequest(meta).Debug(ctx, "retrying request",
		Field{Key: "next_attempt", Value: attempt + 1},
		Field{Key: "delay", Value: delay},
	)
}

// CacheLookup records whether a cache-eligible request was served locally.
func (m *Middleware) CacheLookup(ctx context.Context, meta RequestMeta, hit bool) {
	m.metrics.RecordCacheLookup(ctx, meta, hit)
	if hit {
		m.logger.WithRequest(meta).Debug(ctx, "cache hit")
	}
}

// Logger returns the middleware logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
