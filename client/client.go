package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/reqclient/auth"
	"github.com/jonwraymond/reqclient/cache"
	"github.com/jonwraymond/reqclient/observe"
	"github.com/jonwraymond/reqclient/resilience"
)

// Client is a resilient JSON request client. It is safe for concurrent use.
type Client struct {
	config  Config
	http    *http.Client
	headers http.Header
	auth    auth.Provider

	store cache.Cache
	keyer cache.Keyer
	cache *cache.Middleware
	dedup bool

	observer observe.Observer
	logger   observe.Logger
	mw       *observe.Middleware

	breaker  *resilience.CircuitBreaker
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead

	// wait performs backoff sleeps; nil uses a timer.
	wait resilience.WaitFunc
	now  func() time.Time
}

// New creates a Client. Defaults are applied first, then opts. A negative
// timeout, retry count, retry delay or cache timeout is rejected.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		config:  DefaultConfig(),
		http:    &http.Client{},
		headers: make(http.Header),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	if c.store == nil {
		c.store = cache.NewMemoryCache()
	}
	var cacheOpts []cache.MiddlewareOption
	if c.dedup {
		cacheOpts = append(cacheOpts, cache.WithDeduplication())
	}
	policy := cache.Policy{Lifetime: c.config.CacheTimeout, Methods: []string{http.MethodGet}}
	c.cache = cache.NewMiddleware(c.store, c.keyer, policy, cacheOpts...)

	if c.mw == nil {
		if c.observer != nil {
			mw, err := observe.MiddlewareFromObserver(c.observer)
			if err != nil {
				return nil, err
			}
			c.mw = mw
		} else {
			c.mw = observe.NewMiddleware(nil, nil, c.logger)
		}
	}

	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Request sends one logical request to BaseURL+endpoint and returns the raw
// JSON payload, which is empty for an empty 2xx body. Cache-eligible GETs
// are answered from the cache while fresh, with no network activity.
func (c *Client) Request(ctx context.Context, endpoint string, opts ...RequestOption) (json.RawMessage, error) {
	ro := c.ResolveOptions(opts...)
	url := c.config.BaseURL + endpoint

	if err := ro.Validate(); err != nil {
		return nil, c.annotate(err, ro.Method, url, 0)
	}

	body, err := cache.EncodeBody(ro.Body)
	if err != nil {
		return nil, c.annotate(&Error{
			Kind:    KindValidation,
			Message: "request body is not JSON encodable",
			Err:     err,
		}, ro.Method, url, 0)
	}

	meta := observe.RequestMeta{
		Method:    ro.Method,
		Endpoint:  endpoint,
		URL:       url,
		RequestID: uuid.NewString(),
	}

	payload, err := c.mw.Wrap(func(ctx context.Context, meta observe.RequestMeta) ([]byte, error) {
		creq := cache.Request{Method: ro.Method, URL: url, Body: body, Enabled: ro.cacheable()}

		payload, outcome, err := c.cache.Execute(ctx, creq, func(ctx context.Context) ([]byte, error) {
			return c.send(ctx, meta, ro, body)
		})

		if err != nil {
			if _, ok := AsError(err); !ok {
				// This caller stopped waiting on a shared fetch.
				err = c.annotate(classifyFinal(ctx, err), ro.Method, url, 0)
			}
		}

		switch outcome {
		case cache.OutcomeHit, cache.OutcomeShared:
			c.mw.CacheLookup(ctx, meta, true)
		case cache.OutcomeMiss:
			c.mw.CacheLookup(ctx, meta, false)
		}
		return payload, err
	})(ctx, meta)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, withMethod(http.MethodGet, nil, opts)...)
}

// Post sends a POST request with body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, withMethod(http.MethodPost, body, opts)...)
}

// Put sends a PUT request with body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, withMethod(http.MethodPut, body, opts)...)
}

// Patch sends a PATCH request with body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, withMethod(http.MethodPatch, body, opts)...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, withMethod(http.MethodDelete, nil, opts)...)
}

// withMethod forwards opts and pins the method. A non-nil body is applied
// before opts so an explicit WithBody still wins.
func withMethod(method string, body any, opts []RequestOption) []RequestOption {
	out := make([]RequestOption, 0, len(opts)+2)
	if body != nil {
		out = append(out, WithBody(body))
	}
	out = append(out, opts...)
	return append(out, WithMethod(method))
}

// CacheKey returns the key a call with these options would use.
func (c *Client) CacheKey(endpoint string, opts ...RequestOption) (string, error) {
	ro := c.ResolveOptions(opts...)
	body, err := cache.EncodeBody(ro.Body)
	if err != nil {
		return "", err
	}
	return c.cache.Key(cache.Request{Method: ro.Method, URL: c.config.BaseURL + endpoint, Body: body})
}

// CacheStore returns the store backing the response cache.
func (c *Client) CacheStore() cache.Cache {
	return c.cache.Cache()
}

// ClearCache removes every cached response.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// ClearCacheEntry removes one cached response. An absent key is not an error.
func (c *Client) ClearCacheEntry(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// annotate fills the request identity and timestamp of an *Error.
func (c *Client) annotate(err error, method, url string, attempts int) error {
	e, ok := AsError(err)
	if !ok {
		return err
	}
	if e.Method == "" {
		e.Method = method
	}
	if e.URL == "" {
		e.URL = url
	}
	if attempts > 0 {
		e.Attempts = attempts
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now().UTC()
	}
	return e
}
