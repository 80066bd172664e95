package cache

import (
	"net/http"
	"strings"
	"time"
)

// Policy configures caching behavior.
type Policy struct {
	// Lifetime is how long a stored entry answers reads.
	// If zero, caching is disabled.
	Lifetime time.Duration

	// Methods lists the methods whose responses may be cached.
	// Default: GET only.
	Methods []string
}

// DefaultPolicy caches GET responses for 5 minutes.
func DefaultPolicy() Policy {
	return Policy{
		Lifetime: 5 * time.Minute,
		Methods:  []string{http.MethodGet},
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.Lifetime > 0
}

// Cacheable reports whether responses to method may be cached.
// Method matching is case-insensitive.
func (p Policy) Cacheable(method string) bool {
	methods := p.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
