package auth

import "net/http"

// Transport is an http.RoundTripper that applies a Provider to every
// outgoing request, for plain http.Client users outside the request client.
type Transport struct {
	Provider Provider

	// Base performs the request. Default: http.DefaultTransport
	Base http.RoundTripper
}

// RoundTrip clones req, applies credentials and delegates to Base.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Provider == nil {
		return base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	if err := t.Provider.Apply(req.Context(), out.Header); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return base.RoundTrip(out)
}

var _ http.RoundTripper = (*Transport)(nil)
