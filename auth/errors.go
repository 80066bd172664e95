package auth

import "errors"

// Sentinel errors for credential providers.
var (
	// ErrMissingCredentials indicates a provider was built without its secret.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrTokenUnavailable indicates a token could not be minted or fetched.
	ErrTokenUnavailable = errors.New("auth: token unavailable")
)
