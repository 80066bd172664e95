package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// FetchFunc produces a fresh payload on cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Outcome describes how a request interacted with the cache.
type Outcome int

const (
	// OutcomeBypass means the request was not eligible for caching.
	OutcomeBypass Outcome = iota
	// OutcomeHit means the payload came from the cache.
	OutcomeHit
	// OutcomeMiss means the payload was fetched and, on success, stored.
	OutcomeMiss
	// OutcomeShared means the payload came from a concurrent identical fetch.
	OutcomeShared
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeBypass:
		return "bypass"
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Request identifies a cacheable call.
type Request struct {
	Method string
	URL    string
	Body   []byte

	// Enabled is the per-call opt-in; it never overrides Policy.Cacheable.
	Enabled bool
}

// Middleware wraps fetching with cache lookup and store.
type Middleware struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	group  *singleflight.Group
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithDeduplication collapses concurrent misses for the same key into one
// fetch whose result is shared by every waiter. The fetch does not inherit
// any caller's cancellation: a caller whose ctx ends stops waiting with
// ctx.Err() while the others keep waiting for the result.
func WithDeduplication() MiddlewareOption {
	return func(m *Middleware) {
		m.group = &singleflight.Group{}
	}
}

// NewMiddleware creates a new cache middleware.
// If keyer is nil, DefaultKeyer is used.
func NewMiddleware(cache Cache, keyer Keyer, policy Policy, opts ...MiddlewareOption) *Middleware {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	m := &Middleware{
		cache:  cache,
		keyer:  keyer,
		policy: policy,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Eligible reports whether req may be served from or stored in the cache.
func (m *Middleware) Eligible(req Request) bool {
	return m != nil && m.cache != nil &&
		req.Enabled && m.policy.ShouldCache() && m.policy.Cacheable(req.Method)
}

// Key returns the cache key for req.
func (m *Middleware) Key(req Request) (string, error) {
	return m.keyer.Key(req.Method, req.URL, req.Body)
}

// Execute serves req from the cache when possible, otherwise calls fetch.
// Successful fetches of eligible requests are stored, replacing any earlier
// entry. Errors are NOT cached.
func (m *Middleware) Execute(ctx context.Context, req Request, fetch FetchFunc) ([]byte, Outcome, error) {
	if !m.Eligible(req) {
		value, err := fetch(ctx)
		return value, OutcomeBypass, err
	}

	key, err := m.Key(req)
	if err != nil {
		// Key generation failed - execute without caching
		value, err := fetch(ctx)
		return value, OutcomeBypass, err
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		return cached, OutcomeHit, nil
	}

	if m.group == nil {
		value, err := m.fetchAndStore(ctx, key, fetch)
		return value, OutcomeMiss, err
	}

	// The shared fetch must not end because one waiter gave up, so it runs
	// detached from every caller's cancellation. Each caller still stops
	// waiting when its own ctx ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.fetchAndStore(flightCtx, key, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, OutcomeMiss, ctx.Err()
	case res := <-ch:
		outcome := OutcomeMiss
		if res.Shared {
			outcome = OutcomeShared
		}
		payload, _ := res.Val.([]byte)
		return clone(payload), outcome, res.Err
	}
}

func (m *Middleware) fetchAndStore(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	_ = m.cache.Set(ctx, key, value, m.policy.Lifetime)
	return value, nil
}

// Clear empties the underlying cache.
func (m *Middleware) Clear(ctx context.Context) error {
	if m == nil || m.cache == nil {
		return ErrNilCache
	}
	return m.cache.Clear(ctx)
}

// Delete removes one entry. Idempotent - no error on miss.
func (m *Middleware) Delete(ctx context.Context, key string) error {
	if m == nil || m.cache == nil {
		return ErrNilCache
	}
	return m.cache.Delete(ctx, key)
}

// Cache returns the underlying store.
func (m *Middleware) Cache() Cache {
	return m.cache
}
