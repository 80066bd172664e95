package auth

import (
	"context"
	"net/http"
)

// BearerToken sends a fixed token as "Authorization: Bearer <token>".
type BearerToken struct {
	token string
}

// NewBearerToken creates a static bearer provider.
func NewBearerToken(token string) (*BearerToken, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}
	return &BearerToken{token: token}, nil
}

// Apply sets the Authorization header.
func (b *BearerToken) Apply(_ context.Context, h http.Header) error {
	h.Set("Authorization", "Bearer "+b.token)
	return nil
}

// APIKeyConfig configures the API key provider.
type APIKeyConfig struct {
	// HeaderName is the header carrying the key.
	// Default: "X-API-Key"
	HeaderName string

	// Prefix is prepended to the key, e.g. "ApiKey ".
	Prefix string
}

// APIKey sends a fixed key in a header.
type APIKey struct {
	config APIKeyConfig
	key    string
}

// NewAPIKey creates an API key provider.
func NewAPIKey(key string, config APIKeyConfig) (*APIKey, error) {
	if key == "" {
		return nil, ErrMissingCredentials
	}
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	return &APIKey{config: config, key: key}, nil
}

// Apply sets the key header.
func (a *APIKey) Apply(_ context.Context, h http.Header) error {
	h.Set(a.config.HeaderName, a.config.Prefix+a.key)
	return nil
}

var (
	_ Provider = (*BearerToken)(nil)
	_ Provider = (*APIKey)(nil)
)
