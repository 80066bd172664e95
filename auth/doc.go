// Package auth provides outbound credential providers for the request client.
//
// A Provider decorates the headers of every attempt: static bearer tokens,
// API keys, self-signed JWTs (HS256 via golang-jwt) and OAuth2 client
// credentials. Providers that mint tokens cache them and refresh before
// expiry, so a retry never reuses a token that is about to lapse.
package auth
