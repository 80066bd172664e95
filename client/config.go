package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/reqclient/auth"
	"github.com/jonwraymond/reqclient/cache"
	"github.com/jonwraymond/reqclient/observe"
	"github.com/jonwraymond/reqclient/resilience"
)

var validate = validator.New()

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetries      = 3
	DefaultRetryDelay   = time.Second
	DefaultCacheTimeout = 5 * time.Minute
)

// Config is the client configuration, fixed at construction.
type Config struct {
	// BaseURL is prepended verbatim to every endpoint.
	BaseURL string `json:"baseUrl"`

	// Timeout bounds each attempt. Zero disables the guard.
	// Default: 30s
	Timeout time.Duration `json:"timeout" validate:"gte=0"`

	// Retries is the number of retries after the first attempt.
	// Default: 3
	Retries int `json:"retries" validate:"gte=0"`

	// RetryDelay is the base backoff; the wait after failed attempt i is
	// RetryDelay * 2^i.
	// Default: 1s
	RetryDelay time.Duration `json:"retryDelay" validate:"gte=0"`

	// Cache enables caching of GET responses by default.
	// Default: true
	Cache bool `json:"cache"`

	// CacheTimeout is the lifetime of a cache entry.
	// Default: 5m
	CacheTimeout time.Duration `json:"cacheTimeout" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when no option overrides it.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		RetryDelay:   DefaultRetryDelay,
		Cache:        true,
		CacheTimeout: DefaultCacheTimeout,
	}
}

// Validate reports negative durations or counts.
func (c Config) Validate() error {
	return validationError(validate.Struct(c))
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) { c.config = cfg }
}

// WithBaseURL sets the prefix of every endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.config.BaseURL = url }
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.config.Timeout = d }
}

// WithRetries sets the default retry count.
func WithRetries(n int) Option {
	return func(c *Client) { c.config.Retries = n }
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.config.RetryDelay = d }
}

// WithCache enables or disables GET caching by default.
func WithCache(enabled bool) Option {
	return func(c *Client) { c.config.Cache = enabled }
}

// WithCacheTimeout sets the cache entry lifetime.
func WithCacheTimeout(d time.Duration) Option {
	return func(c *Client) { c.config.CacheTimeout = d }
}

// WithHTTPClient sets the transport. Default: a client without its own
// timeout, since attempts carry their own deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, vs := range h {
			for _, v := range vs {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithCacheStore replaces the per-instance memory cache, e.g. with a
// cache.RedisCache. The store should not be shared with other clients.
func WithCacheStore(store cache.Cache) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithKeyer replaces the cache key derivation.
func WithKeyer(k cache.Keyer) Option {
	return func(c *Client) { c.keyer = k }
}

// WithDeduplication collapses concurrent identical cache-eligible GETs into
// one network call.
func WithDeduplication() Option {
	return func(c *Client) { c.dedup = true }
}

// WithObserver instruments requests with the observer's tracer, meter and logger.
func WithObserver(obs observe.Observer) Option {
	return func(c *Client) { c.observer = obs }
}

// WithMiddleware instruments requests with a prebuilt middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// WithLogger logs through l when no observer or middleware is configured.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAuth decorates every attempt with credentials from p.
func WithAuth(p auth.Provider) Option {
	return func(c *Client) { c.auth = p }
}

// WithCircuitBreaker guards the client with a breaker. Without an
// IsFailure filter only retryable failures count against the upstream.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if cfg.IsFailure == nil {
			cfg.IsFailure = IsRetryable
		}
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// WithRateLimit bounds the rate of logical requests.
func WithRateLimit(cfg resilience.RateLimiterConfig) Option {
	return func(c *Client) { c.limiter = resilience.NewRateLimiter(cfg) }
}

// WithMaxConcurrent bounds the number of logical requests in flight.
func WithMaxConcurrent(n int, maxWait time.Duration) Option {
	return func(c *Client) {
		c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: n,
			MaxWait:       maxWait,
		})
	}
}

// validationError converts validator output into an *Error.
func validationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{
			Kind:      KindValidation,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
			Err:       fmt.Errorf("%w: %v", ErrInvalidOptions, err),
		}
	}

	details := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fmt.Sprint(fe.Value()),
		})
	}

	first := details[0]
	return &Error{
		Kind:      KindValidation,
		Message:   fmt.Sprintf("%s fails %s=%s (got %s)", first.Field, first.Rule, first.Param, first.Value),
		Code:      "invalid_options",
		Details:   details,
		Timestamp: time.Now().UTC(),
		Err:       fmt.Errorf("%w: %v", ErrInvalidOptions, err),
	}
}

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
	Value string `json:"value"`
}
