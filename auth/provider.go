package auth

import (
	"context"
	"net/http"
)

// Provider adds credentials to an outgoing request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Apply must honor cancellation when it performs I/O.
//   - Errors: a failed Apply leaves h untouched or partially set; callers
//     must not send the request.
type Provider interface {
	Apply(ctx context.Context, h http.Header) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, h http.Header) error

// Apply calls f.
func (f ProviderFunc) Apply(ctx context.Context, h http.Header) error {
	return f(ctx, h)
}

// Chain applies providers in order. The first error stops the chain.
type Chain []Provider

// NewChain creates a chain, skipping nil providers.
func NewChain(providers ...Provider) Chain {
	c := make(Chain, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			c = append(c, p)
		}
	}
	return c
}

// Apply runs every provider in sequence.
func (c Chain) Apply(ctx context.Context, h http.Header) error {
	for _, p := range c {
		if err := p.Apply(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Provider = ProviderFunc(nil)
	_ Provider = Chain(nil)
)
