// Package cache stores decoded response payloads for safe, repeatable reads.
//
// It provides a Cache interface with memory and Redis implementations,
// SHA-256-based request keys, a Policy that restricts caching to read-only
// methods, and a Middleware that wires lookup, fetch and store together.
package cache
