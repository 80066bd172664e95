package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type statusErr struct {
	status int
	kind   string
}

func (e statusErr) Error() string     { return "status error" }
func (e statusErr) StatusCode() int   { return e.status }
func (e statusErr) ErrorKind() string { return e.kind }

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracer(tp.Tracer("test")), rec
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRequestMeta_SpanName(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "http.client.GET"},
		{"post", "http.client.POST"},
		{"", "http.client.GET"},
	}
	for _, tt := range tests {
		if got := (RequestMeta{Method: tt.method}).SpanName(); got != tt.want {
			t.Errorf("SpanName(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestTracer_SuccessSpan(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), RequestMeta{
		Method:    "GET",
		Endpoint:  "/users/1",
		URL:       "https://api.example.com/users/1",
		RequestID: "abc",
	})
	tracer.EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "http.client.GET" {
		t.Errorf("name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("kind = %v, want client", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
	if v, ok := attrValue(s.Attributes(), "url.full"); !ok || v.AsString() != "https://api.example.com/users/1" {
		t.Errorf("url.full = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), "reqclient.request_id"); !ok || v.AsString() != "abc" {
		t.Errorf("reqclient.request_id = %v", v)
	}
}

func TestTracer_ErrorSpan(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), RequestMeta{Method: "GET"})
	tracer.EndSpan(span, statusErr{status: 503, kind: "server"})

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if v, _ := attrValue(s.Attributes(), "reqclient.error"); !v.AsBool() {
		t.Error("reqclient.error = false, want true")
	}
	if v, _ := attrValue(s.Attributes(), "http.response.status_code"); v.AsInt64() != 503 {
		t.Errorf("http.response.status_code = %v, want 503", v.AsInt64())
	}
	if v, _ := attrValue(s.Attributes(), "error.type"); v.AsString() != "server" {
		t.Errorf("error.type = %q, want server", v.AsString())
	}
	if len(s.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestTracer_PlainError(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), RequestMeta{Method: "DELETE"})
	tracer.EndSpan(span, errors.New("dial tcp: refused"))

	s := rec.Ended()[0]
	if _, ok := attrValue(s.Attributes(), "http.response.status_code"); ok {
		t.Error("status code attribute set for error without status")
	}
}

func TestNewTracer_NilUsesNoop(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), RequestMeta{})
	tracer.EndSpan(span, nil)
}
