package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	if _, err := NewBearerToken(""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("NewBearerToken(\"\") error = %v, want ErrMissingCredentials", err)
	}

	p, err := NewBearerToken("abc")
	if err != nil {
		t.Fatalf("NewBearerToken() error = %v", err)
	}
	h := make(http.Header)
	if err := p.Apply(context.Background(), h); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := h.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc")
	}
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		config     APIKeyConfig
		wantHeader string
		wantValue  string
	}{
		{"default header", APIKeyConfig{}, "X-API-Key", "k1"},
		{"custom header and prefix", APIKeyConfig{HeaderName: "Authorization", Prefix: "ApiKey "}, "Authorization", "ApiKey k1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAPIKey("k1", tt.config)
			if err != nil {
				t.Fatalf("NewAPIKey() error = %v", err)
			}
			h := make(http.Header)
			_ = p.Apply(context.Background(), h)
			if got := h.Get(tt.wantHeader); got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}

	if _, err := NewAPIKey("", APIKeyConfig{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("NewAPIKey(\"\") error = %v, want ErrMissingCredentials", err)
	}
}

func TestChain(t *testing.T) {
	bearer, _ := NewBearerToken("abc")
	key, _ := NewAPIKey("k", APIKeyConfig{})

	h := make(http.Header)
	if err := NewChain(bearer, nil, key).Apply(context.Background(), h); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if h.Get("Authorization") != "Bearer abc" || h.Get("X-API-Key") != "k" {
		t.Errorf("headers = %v", h)
	}
}

func TestChain_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false

	chain := NewChain(
		ProviderFunc(func(ctx context.Context, h http.Header) error { return boom }),
		ProviderFunc(func(ctx context.Context, h http.Header) error {
			called = true
			return nil
		}),
	)

	if err := chain.Apply(context.Background(), make(http.Header)); err != boom {
		t.Fatalf("Apply() error = %v, want boom", err)
	}
	if called {
		t.Error("provider after failure was called")
	}
}

func TestTransport(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	bearer, _ := NewBearerToken("abc")
	hc := &http.Client{Transport: &Transport{Provider: bearer}}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if got != "Bearer abc" {
		t.Errorf("server saw Authorization = %q", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Transport mutated the caller's request")
	}
}

func TestTransport_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	hc := &http.Client{Transport: &Transport{
		Provider: ProviderFunc(func(ctx context.Context, h http.Header) error { return boom }),
	}}

	_, err := hc.Get("http://127.0.0.1:1/")
	if !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want boom", err)
	}
}
