package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver turns configured credential values into the secrets they name.
//
// A value is first expanded with ExpandStrict. A value that is then a whole
// "secretref:<provider>:<ref>" is replaced by what the provider returns;
// references embedded in a longer value, such as "Bearer secretref:env:T",
// are replaced in place. A nil *Resolver only expands the environment.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	lookup    LookupFunc
}

// NewResolver creates a Resolver over providers. With strict set, a
// provider returning an empty value is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds provider under its name, replacing any previous one.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[provider.Name()] = provider
}

// SetLookup replaces the process environment as the source of variables
// for expansion.
func (r *Resolver) SetLookup(lookup LookupFunc) {
	if r != nil {
		r.lookup = lookup
	}
}

// ResolveValue expands value and resolves the references in it.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	if r == nil {
		return ExpandEnvStrict(value)
	}
	expanded, err := ExpandStrict(value, r.lookup)
	if err != nil {
		return "", err
	}

	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, name, ref)
	}
	return r.resolveEmbedded(ctx, expanded)
}

// ResolveRefs resolves the references in value without expanding the
// environment, so a literal '$' in value is kept. Use it for credentials,
// which are opaque strings.
func (r *Resolver) ResolveRefs(ctx context.Context, value string) (string, error) {
	if r == nil {
		return value, nil
	}
	if name, ref, ok := ParseSecretRef(value); ok {
		return r.resolve(ctx, name, ref)
	}
	return r.resolveEmbedded(ctx, value)
}

// ResolveSlice resolves each element of values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// ResolveMap resolves each value of input. Errors name the failing key.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef splits a whole reference "secretref:<provider>:<ref>".
// The ref part may itself contain colons.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolve(ctx context.Context, name, ref string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(ref) == "" {
		return "", ErrInvalidRef
	}
	provider, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	value, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && value == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptyValue, name, ref)
	}
	return value, nil
}

var embeddedRefPattern = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) resolveEmbedded(ctx context.Context, value string) (string, error) {
	var firstErr error
	out := embeddedRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		if firstErr != nil {
			return match
		}
		name, ref, _ := ParseSecretRef(match)
		resolved, err := r.resolve(ctx, name, ref)
		if err != nil {
			firstErr = err
			return match
		}
		return resolved
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Close closes every registered provider and returns the first error.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
