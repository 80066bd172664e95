package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request, attempt and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one logical request with its outcome.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordAttempt records one transport attempt. attempt is 1-based;
	// anything above 1 also counts as a retry.
	RecordAttempt(ctx context.Context, meta RequestMeta, attempt int, err error)

	// RecordCacheLookup records a cache hit or miss.
	RecordCacheLookup(ctx context.Context, meta RequestMeta, hit bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	attemptCount metric.Int64Counter
	retryCount   metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// NewMetrics creates the request instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.totalCount, err = meter.Int64Counter(
		"reqclient.requests.total",
		metric.WithDescription("Total number of logical requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.errorCount, err = meter.Int64Counter(
		"reqclient.requests.errors",
		metric.WithDescription("Total number of failed logical requests"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.durationHist, err = meter.Float64Histogram(
		"reqclient.request.duration_ms",
		metric.WithDescription("Logical request duration in milliseconds, retries included"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.attemptCount, err = meter.Int64Counter(
		"reqclient.attempts.total",
		metric.WithDescription("Total number of transport attempts"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}

	if m.retryCount, err = meter.Int64Counter(
		"reqclient.retries.total",
		metric.WithDescription("Total number of retried attempts"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}

	if m.cacheHits, err = meter.Int64Counter(
		"reqclient.cache.hits",
		metric.WithDescription("Responses served from the cache"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.cacheMisses, err = meter.Int64Counter(
		"reqclient.cache.misses",
		metric.WithDescription("Cache lookups that fell through to the network"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func methodAttrs(meta RequestMeta) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("http.request.method", meta.method())}
}

func errorAttrs(attrs []attribute.KeyValue, err error) []attribute.KeyValue {
	var ek ErrorKinder
	if errors.As(err, &ek) {
		attrs = append(attrs, attribute.String("error.type", ek.ErrorKind()))
	}
	return attrs
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	attrs := methodAttrs(meta)
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(errorAttrs(attrs, err)...))
	}

	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, meta RequestMeta, attempt int, err error) {
	attrs := methodAttrs(meta)
	if err != nil {
		attrs = errorAttrs(attrs, err)
	}
	attrs = append(attrs, attribute.Bool("reqclient.failed", err != nil))
	opt := metric.WithAttributes(attrs...)

	m.attemptCount.Add(ctx, 1, opt)
	if attempt > 1 {
		m.retryCount.Add(ctx, 1, metric.WithAttributes(methodAttrs(meta)...))
	}
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta RequestMeta, hit bool) {
	opt := metric.WithAttributes(methodAttrs(meta)...)
	if hit {
		m.cacheHits.Add(ctx, 1, opt)
		return
	}
	m.cacheMisses.Add(ctx, 1, opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
}
func (noopMetrics) RecordAttempt(ctx context.Context, meta RequestMeta, attempt int, err error) {}
func (noopMetrics) RecordCacheLookup(ctx context.Context, meta RequestMeta, hit bool)           {}
