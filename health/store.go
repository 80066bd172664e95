package health

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/reqclient/cache"
)

// StoreCheckerConfig configures a StoreChecker.
type StoreCheckerConfig struct {
	// Key is the probe key written to the store.
	// Default: "health:probe"
	Key string

	// TTL is the lifetime of the probe entry.
	// Default: 10 seconds
	TTL time.Duration

	// SlowThreshold marks a successful round trip slower than this as
	// degraded. Zero disables the check.
	SlowThreshold time.Duration
}

// StoreChecker verifies that a response cache accepts writes and serves
// them back.
type StoreChecker struct {
	name   string
	store  cache.Cache
	config StoreCheckerConfig
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(name string, store cache.Cache, config ...StoreCheckerConfig) *StoreChecker {
	var cfg StoreCheckerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Key == "" {
		cfg.Key = "health:probe"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	return &StoreChecker{name: name, store: store, config: cfg}
}

// Name returns the name of this checker.
func (s *StoreChecker) Name() string {
	return s.name
}

// Check writes a probe value, reads it back and removes it.
func (s *StoreChecker) Check(ctx context.Context) Result {
	if s.store == nil {
		return Unhealthy("no cache store", cache.ErrNilCache)
	}

	start := time.Now()
	value := []byte(strconv.FormatInt(start.UnixNano(), 10))

	if err := s.store.Set(ctx, s.config.Key, value, s.config.TTL); err != nil {
		return Unhealthy("cache write failed", fmt.Errorf("%w: %w", ErrCheckFailed, err))
	}
	got, ok := s.store.Get(ctx, s.config.Key)
	_ = s.store.Delete(ctx, s.config.Key)
	elapsed := time.Since(start)

	details := map[string]any{"round_trip": elapsed.String()}
	if !ok || !bytes.Equal(got, value) {
		return Unhealthy("cache did not return the probe value", ErrCheckFailed).WithDetails(details)
	}
	if s.config.SlowThreshold > 0 && elapsed > s.config.SlowThreshold {
		return Degraded(fmt.Sprintf("cache round trip took %s", elapsed)).WithDetails(details)
	}
	return Healthy("cache round trip ok").WithDetails(details)
}
