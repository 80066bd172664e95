package observe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one logical outbound request for telemetry.
type RequestMeta struct {
	Method    string // HTTP method; empty means GET
	Endpoint  string // path as passed by the caller
	URL       string // fully resolved URL
	RequestID string // X-Request-ID shared by all attempts
}

func (m RequestMeta) method() string {
	if m.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(m.Method)
}

// SpanName returns the deterministic span name for this request.
// Format: http.client.<METHOD>
func (m RequestMeta) SpanName() string {
	return "http.client." + m.method()
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// ErrorKinder is implemented by errors that carry a failure class.
type ErrorKinder interface {
	ErrorKind() string
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for a logical request.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", meta.method()),
		attribute.Bool("reqclient.error", false),
	}
	if meta.URL != "" {
		attrs = append(attrs, attribute.String("url.full", meta.URL))
	}
	if meta.Endpoint != "" {
		attrs = append(attrs, attribute.String("reqclient.endpoint", meta.Endpoint))
	}
	if meta.RequestID != "" {
		attrs = append(attrs, attribute.String("reqclient.request_id", meta.RequestID))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("reqclient.error", true))

		var sc StatusCoder
		if errors.As(err, &sc) && sc.StatusCode() > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", sc.StatusCode()))
		}
		var ek ErrorKinder
		if errors.As(err, &ek) {
			span.SetAttributes(attribute.String("error.type", ek.ErrorKind()))
		}
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
