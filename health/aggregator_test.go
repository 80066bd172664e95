package health

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(r Result) func(context.Context) Result {
	return func(context.Context) Result { return r }
}

func register(agg *Aggregator, name string, fn func(context.Context) Result) {
	agg.Register(name, NewCheckerFunc(name, fn))
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}
	if agg.config.MaxConcurrent != 0 {
		t.Errorf("MaxConcurrent = %d, want 0", agg.config.MaxConcurrent)
	}

	agg = NewAggregator(AggregatorConfig{Timeout: time.Second, MaxConcurrent: 2})
	if agg.config.Timeout != time.Second || agg.config.MaxConcurrent != 2 {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_Registration(t *testing.T) {
	agg := NewAggregator()
	register(agg, "upstream", fixed(Healthy("first")))
	register(agg, "cache", fixed(Healthy("ok")))
	register(agg, "upstream", fixed(Healthy("second")))

	if got := agg.CheckerNames(); !slices.Equal(got, []string{"upstream", "cache"}) {
		t.Errorf("CheckerNames() = %v", got)
	}

	result, err := agg.Check(context.Background(), "upstream")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Message != "second" {
		t.Errorf("Message = %q, want the replacement checker", result.Message)
	}

	agg.Unregister("upstream")
	if got := agg.CheckerNames(); !slices.Equal(got, []string{"cache"}) {
		t.Errorf("CheckerNames() after Unregister = %v", got)
	}
	if _, err := agg.Check(context.Background(), "upstream"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	if got := agg.CheckAll(context.Background()); len(got) != 0 {
		t.Errorf("CheckAll() with no checkers = %v", got)
	}

	register(agg, "upstream", fixed(Healthy("ok")))
	register(agg, "cache", fixed(Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["upstream"].Status != StatusHealthy {
		t.Errorf("upstream = %v", results["upstream"].Status)
	}
	if results["cache"].Status != StatusDegraded {
		t.Errorf("cache = %v", results["cache"].Status)
	}
	if results["cache"].Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestAggregator_MaxConcurrent(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MaxConcurrent: 1})

	var running, peak atomic.Int32
	check := func(ctx context.Context) Result {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return Healthy("ok")
	}
	for _, name := range []string{"upstream", "cache", "auth"} {
		register(agg, name, check)
	}

	if results := agg.CheckAll(context.Background()); len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestAggregator_ChecksRunConcurrently(t *testing.T) {
	agg := NewAggregator()
	for _, name := range []string{"a", "b", "c", "d"} {
		register(agg, name, func(ctx context.Context) Result {
			time.Sleep(50 * time.Millisecond)
			return Healthy("ok")
		})
	}

	start := time.Now()
	_ = agg.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("CheckAll took %v, checks did not overlap", elapsed)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 50 * time.Millisecond})
	register(agg, "slow", func(ctx context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("ok")
	})

	result := agg.CheckAll(context.Background())["slow"]
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("Error = %v, want ErrCheckTimeout", result.Error)
	}
	if result.Duration <= 0 {
		t.Error("Duration should be recorded for a timed out check")
	}
}

func TestAggregator_Report(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy("ok"), Healthy("ok")}, StatusHealthy},
		{"one degraded", []Result{Healthy("ok"), Degraded("4xx")}, StatusDegraded},
		{"unhealthy overrides degraded", []Result{Degraded("4xx"), Unhealthy("down", nil)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, r := range tt.results {
				register(agg, string(rune('a'+i)), fixed(r))
			}
			report := agg.Report(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.results) {
				t.Errorf("len(Checks) = %d, want %d", len(report.Checks), len(tt.results))
			}
			if report.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestAggregator_Checker(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		want    Status
		message string
	}{
		{"healthy", Healthy("ok"), StatusHealthy, "all checks passed"},
		{"degraded", Degraded("slow"), StatusDegraded, "some checks degraded"},
		{"unhealthy", Unhealthy("down", nil), StatusUnhealthy, "some checks failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			register(agg, "upstream", fixed(tt.result))

			checker := agg.Checker()
			if checker.Name() != "aggregate" {
				t.Errorf("Name() = %q", checker.Name())
			}
			result := checker.Check(context.Background())
			if result.Status != tt.want || result.Message != tt.message {
				t.Errorf("Check() = %v %q, want %v %q", result.Status, result.Message, tt.want, tt.message)
			}
			if _, ok := result.Details["upstream"]; !ok {
				t.Errorf("Details = %v, want an upstream entry", result.Details)
			}
		})
	}
}

func TestAggregator_Nested(t *testing.T) {
	inner := NewAggregator()
	register(inner, "cache", fixed(Degraded("slow")))

	outer := NewAggregator()
	outer.Register("dependencies", inner.Checker())
	register(outer, "upstream", fixed(Healthy("ok")))

	if got := outer.Report(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status = %v, want degraded from the nested aggregator", got)
	}
}
