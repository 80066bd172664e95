package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingWait captures requested delays without sleeping.
type recordingWait struct {
	delays []time.Duration
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.delays = append(w.delays, d)
	return ctx.Err()
}

func TestNewRetry(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.InitialDelay != 0 {
		t.Errorf("InitialDelay = %v, want 0", r.config.InitialDelay)
	}
	if r.config.MaxDelay != 0 {
		t.Errorf("MaxDelay = %v, want 0 (uncapped)", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
	if r.config.Wait == nil {
		t.Error("Wait should default to a timer")
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	attempts := 0
	testErr := errors.New("test error")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return testErr
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustedAttemptsReturnsLastError(t *testing.T) {
	w := &recordingWait{}
	r := NewRetry(RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Second,
		Wait:         w.wait,
	})

	attempts := 0
	var last error

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		last = errors.New("failure " + string(rune('0'+attempts)))
		return last
	})

	if err != last {
		t.Errorf("Execute() error = %v, want last error %v", err, last)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(w.delays) != len(want) {
		t.Fatalf("waits = %v, want %v", w.delays, want)
	}
	for i := range want {
		if w.delays[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, w.delays[i], want[i])
		}
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(ctx context.Context) error {
		return errors.New("test error")
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_RetryIf(t *testing.T) {
	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		RetryIf: func(err error) bool {
			return err == retryableErr
		},
	})

	t.Run("retryable error", func(t *testing.T) {
		attempts := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			attempts++
			return retryableErr
		})

		if err != retryableErr {
			t.Errorf("Execute() error = %v, want %v", err, retryableErr)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("non-retryable error", func(t *testing.T) {
		attempts := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			attempts++
			return nonRetryableErr
		})

		if err != nonRetryableErr {
			t.Errorf("Execute() error = %v, want %v", err, nonRetryableErr)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})
}

func TestRetry_OnRetry(t *testing.T) {
	type call struct {
		attempt int
		delay   time.Duration
	}
	var calls []call

	w := &recordingWait{}
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Wait:         w.wait,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			calls = append(calls, call{attempt, delay})
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("test error")
	})

	if len(calls) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(calls))
	}
	if calls[0].attempt != 1 || calls[0].delay != 10*time.Millisecond {
		t.Errorf("first callback = %+v, want {1 10ms}", calls[0])
	}
	if calls[1].attempt != 2 || calls[1].delay != 20*time.Millisecond {
		t.Errorf("second callback = %+v, want {2 20ms}", calls[1])
	}
}

func TestRetry_ZeroDelayDoesNotWait(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5})

	start := time.Now()
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero-delay retries took %v", elapsed)
	}
}

func TestRetry_Delay(t *testing.T) {
	tests := []struct {
		name    string
		config  RetryConfig
		attempt int
		want    time.Duration
	}{
		{
			name:    "exponential first retry",
			config:  RetryConfig{InitialDelay: time.Second, Strategy: BackoffExponential},
			attempt: 1,
			want:    time.Second,
		},
		{
			name:    "exponential third retry",
			config:  RetryConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 2.0, Strategy: BackoffExponential},
			attempt: 3,
			want:    40 * time.Millisecond,
		},
		{
			name:    "linear",
			config:  RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: BackoffLinear},
			attempt: 3,
			want:    30 * time.Millisecond,
		},
		{
			name:    "constant",
			config:  RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: BackoffConstant},
			attempt: 3,
			want:    10 * time.Millisecond,
		},
		{
			name: "max delay cap",
			config: RetryConfig{
				InitialDelay: time.Second,
				MaxDelay:     5 * time.Second,
				Multiplier:   10.0,
			},
			attempt: 5,
			want:    5 * time.Second,
		},
		{
			name:    "uncapped growth",
			config:  RetryConfig{InitialDelay: time.Second},
			attempt: 7,
			want:    64 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(tt.config)
			if got := r.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		Jitter:       true,
	})

	for i := 0; i < 50; i++ {
		d := r.Delay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("Delay(1) with jitter = %v, want [100ms, 125ms)", d)
		}
	}
}

func TestRetry_Config(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 5,
	})

	config := r.Config()
	if config.MaxAttempts != 5 {
		t.Errorf("Config().MaxAttempts = %d, want 5", config.MaxAttempts)
	}
}

func TestBackoffStrategy_String(t *testing.T) {
	if BackoffExponential.String() != "exponential" {
		t.Errorf("BackoffExponential.String() = %q", BackoffExponential.String())
	}
	if BackoffStrategy(42).String() != "unknown" {
		t.Errorf("unknown strategy String() = %q", BackoffStrategy(42).String())
	}
}
