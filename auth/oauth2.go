package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Config configures the client credentials flow.
type OAuth2Config struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	Scopes         []string
	EndpointParams map[string][]string

	// HTTPClient fetches tokens. Default: http.DefaultClient
	HTTPClient *http.Client
}

// OAuth2ClientCredentials fetches access tokens with the client credentials
// grant and reuses them until they expire.
type OAuth2ClientCredentials struct {
	source oauth2.TokenSource
}

// NewOAuth2ClientCredentials creates the provider. No token is fetched
// until the first Apply.
func NewOAuth2ClientCredentials(config OAuth2Config) (*OAuth2ClientCredentials, error) {
	if config.ClientID == "" || config.ClientSecret == "" || config.TokenURL == "" {
		return nil, ErrMissingCredentials
	}

	cc := &clientcredentials.Config{
		ClientID:       config.ClientID,
		ClientSecret:   config.ClientSecret,
		TokenURL:       config.TokenURL,
		Scopes:         config.Scopes,
		EndpointParams: config.EndpointParams,
	}

	// The token source keeps this context for every refresh.
	ctx := context.Background()
	if config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, config.HTTPClient)
	}

	return &OAuth2ClientCredentials{source: cc.TokenSource(ctx)}, nil
}

// Apply sets "Authorization: <type> <access token>".
func (o *OAuth2ClientCredentials) Apply(_ context.Context, h http.Header) error {
	tok, err := o.source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return nil
}

var _ Provider = (*OAuth2ClientCredentials)(nil)
