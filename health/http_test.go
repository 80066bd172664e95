package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func aggregatorWith(results map[string]Result) *Aggregator {
	agg := NewAggregator()
	for name, r := range results {
		register(agg, name, fixed(r))
	}
	return agg
}

func TestLivenessHandler(t *testing.T) {
	rec := serve(t, LivenessHandler(), "/healthz")

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
		wantBody string
	}{
		{"healthy", Healthy("ok"), http.StatusOK, "OK"},
		{"degraded is still ready", Degraded("upstream answered 401"), http.StatusOK, "DEGRADED"},
		{"unhealthy", Unhealthy("down", ErrCheckFailed), http.StatusServiceUnavailable, "UNHEALTHY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := aggregatorWith(map[string]Result{"upstream": tt.result})
			rec := serve(t, ReadinessHandler(agg), "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := aggregatorWith(map[string]Result{
		"upstream": Healthy("GET /status ok").WithDetails(map[string]any{"endpoint": "/status"}),
		"cache":    Unhealthy("cache write failed", ErrCheckFailed),
	})

	rec := serve(t, DetailedHandler(agg), "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if response.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", response.Status)
	}
	if _, err := time.Parse(time.RFC3339, response.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", response.Timestamp, err)
	}

	upstream := response.Checks["upstream"]
	if upstream.Status != StatusHealthy || upstream.Details["endpoint"] != "/status" {
		t.Errorf("upstream = %+v", upstream)
	}
	if cache := response.Checks["cache"]; cache.Error == "" {
		t.Error("cache check should carry its error text")
	}
}

func TestDetailedHandler_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 50 * time.Millisecond})
	register(agg, "slow", func(ctx context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("ok")
	})

	rec := serve(t, DetailedHandler(agg), "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503 for a timed out check", rec.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if response.Checks["slow"].Error != ErrCheckTimeout.Error() {
		t.Errorf("slow.Error = %q", response.Checks["slow"].Error)
	}
}

func TestRoutes_SingleCheck(t *testing.T) {
	router := Routes(aggregatorWith(map[string]Result{
		"up":   Healthy("ok"),
		"down": Unhealthy("down", nil),
	}))

	tests := []struct {
		path       string
		wantCode   int
		wantStatus string
	}{
		{"/health/up", http.StatusOK, "healthy"},
		{"/health/down", http.StatusServiceUnavailable, "unhealthy"},
		{"/health/nonexistent", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, router, tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("Status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantStatus == "" {
				return
			}
			var response CheckResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if response.Status.String() != tt.wantStatus {
				t.Errorf("Status = %v, want %v", response.Status, tt.wantStatus)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	router := Routes(aggregatorWith(map[string]Result{"upstream": Healthy("ok")}))

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		if rec := serve(t, router, path); rec.Code != http.StatusOK {
			t.Errorf("%s Status = %d, want 200", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz Status = %d, want 405", rec.Code)
	}
}

func TestMount_OnExistingRouter(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	Mount(r, NewAggregator())

	if rec := serve(t, r, "/metrics"); rec.Code != http.StatusNoContent {
		t.Errorf("/metrics Status = %d", rec.Code)
	}
	if rec := serve(t, r, "/readyz"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/readyz = %d %q", rec.Code, rec.Body.String())
	}
}
