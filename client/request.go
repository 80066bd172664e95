package client

import (
	"net/http"
	"strings"
	"time"
)

// RequestOptions are the resolved settings of one call. Unset fields take
// the client defaults.
type RequestOptions struct {
	// Method is one of GET, POST, PUT, DELETE or PATCH.
	// Default: GET
	Method string `validate:"oneof=GET POST PUT DELETE PATCH"`

	// Headers are merged over the client headers. Keys are canonicalized.
	Headers http.Header `validate:"-"`

	// Body is JSON encoded unless it is []byte or json.RawMessage, which
	// are sent verbatim. Nil sends no body.
	Body any `validate:"-"`

	// Timeout bounds each attempt of this call. Zero disables the guard.
	Timeout time.Duration `validate:"gte=0"`

	// Retries is the retry count for this call.
	Retries int `validate:"gte=0"`

	// Cache requests caching for this call. Only honored for GET.
	Cache bool
}

// RequestOption overrides one field of RequestOptions.
type RequestOption func(*RequestOptions)

// WithMethod sets the HTTP method. Matching is case-insensitive.
func WithMethod(method string) RequestOption {
	return func(o *RequestOptions) { o.Method = strings.ToUpper(method) }
}

// WithHeader adds one header value.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) { o.Headers.Add(key, value) }
}

// WithRequestHeaders adds every header in h.
func WithRequestHeaders(h http.Header) RequestOption {
	return func(o *RequestOptions) {
		for k, vs := range h {
			for _, v := range vs {
				o.Headers.Add(k, v)
			}
		}
	}
}

// WithBody sets the request payload.
func WithBody(body any) RequestOption {
	return func(o *RequestOptions) { o.Body = body }
}

// WithRequestTimeout overrides the per-attempt timeout for one call.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *RequestOptions) { o.Timeout = d }
}

// WithRequestRetries overrides the retry count for one call.
func WithRequestRetries(n int) RequestOption {
	return func(o *RequestOptions) { o.Retries = n }
}

// WithRequestCache overrides the cache flag for one call.
func WithRequestCache(enabled bool) RequestOption {
	return func(o *RequestOptions) { o.Cache = enabled }
}

// NoCache skips the cache for one call.
func NoCache() RequestOption {
	return WithRequestCache(false)
}

// ResolveOptions applies opts over the client defaults.
func (c *Client) ResolveOptions(opts ...RequestOption) RequestOptions {
	ro := RequestOptions{
		Method:  http.MethodGet,
		Headers: make(http.Header),
		Timeout: c.config.Timeout,
		Retries: c.config.Retries,
		Cache:   c.config.Cache,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	return ro
}

// Validate reports an unknown method or negative timeout/retries.
func (o RequestOptions) Validate() error {
	return validationError(validate.Struct(o))
}

// cacheable reports whether the call may read or write the cache.
func (o RequestOptions) cacheable() bool {
	return o.Cache && o.Method == http.MethodGet
}
