package auth

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT signer.
type JWTConfig struct {
	// Key is the HMAC secret. Required.
	Key []byte

	// KeyID is sent in the "kid" header when set.
	KeyID string

	// Issuer, Subject and Audience populate iss, sub and aud.
	Issuer   string
	Subject  string
	Audience []string

	// Claims are extra claims merged into every token.
	Claims map[string]any

	// TTL is the token lifetime.
	// Default: 5 minutes
	TTL time.Duration

	// RefreshBefore mints a new token when the cached one expires within
	// this window.
	// Default: 30 seconds
	RefreshBefore time.Duration

	// HeaderName is the header carrying the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string
}

// JWTSigner mints HS256 tokens and reuses them until close to expiry.
type JWTSigner struct {
	config JWTConfig
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSigner creates a signer.
func NewJWTSigner(config JWTConfig) (*JWTSigner, error) {
	if len(config.Key) == 0 {
		return nil, ErrMissingCredentials
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.RefreshBefore <= 0 {
		config.RefreshBefore = 30 * time.Second
	}
	if config.RefreshBefore >= config.TTL {
		config.RefreshBefore = config.TTL / 2
	}
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}

	return &JWTSigner{config: config, now: time.Now}, nil
}

// Apply sets the header to a valid token.
func (s *JWTSigner) Apply(_ context.Context, h http.Header) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	h.Set(s.config.HeaderName, s.config.TokenPrefix+token)
	return nil
}

// Token returns the cached token or mints a new one.
func (s *JWTSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(s.config.RefreshBefore).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.config.TTL)
	claims := jwt.MapClaims{}
	maps.Copy(claims, s.config.Claims)
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expires)
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}
	if s.config.Subject != "" {
		claims["sub"] = s.config.Subject
	}
	switch len(s.config.Audience) {
	case 0:
	case 1:
		claims["aud"] = s.config.Audience[0]
	default:
		claims["aud"] = s.config.Audience
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.config.KeyID != "" {
		tok.Header["kid"] = s.config.KeyID
	}

	signed, err := tok.SignedString(s.config.Key)
	if err != nil {
		return "", fmt.Errorf("%w: sign jwt: %v", ErrTokenUnavailable, err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

var _ Provider = (*JWTSigner)(nil)
