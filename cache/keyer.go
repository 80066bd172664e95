package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Keyer derives the identity of a request for caching.
//
// Contract:
// - Determinism: the same method, URL and body must produce the same key.
// - Distinctness: changing any of the three must change the key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(method, url string, body []byte) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: <METHOD> <url> <hash>
// where hash is the first 16 hex characters of SHA-256 over the canonical
// form of body. Whitespace and '%' in the url are percent-escaped so the key
// stays on one line; a url too long for MaxKeyLength is replaced by its
// SHA-256.
func (k *DefaultKeyer) Key(method, url string, body []byte) (string, error) {
	if method == "" {
		return "", fmt.Errorf("%w: method is required", ErrInvalidKey)
	}

	hash := sha256.Sum256(canonicalBody(body))
	prefix := strings.ToUpper(method) + " "
	suffix := " " + hex.EncodeToString(hash[:8])

	escaped := urlEscaper.Replace(url)
	if len(prefix)+len(escaped)+len(suffix) > MaxKeyLength {
		sum := sha256.Sum256([]byte(url))
		escaped = "sha256:" + hex.EncodeToString(sum[:])
	}
	return prefix + escaped + suffix, nil
}

var urlEscaper = strings.NewReplacer("%", "%25", " ", "%20", "\t", "%09", "\n", "%0A", "\r", "%0D")

// canonicalBody returns the bytes a body is hashed over. No body hashes as
// JSON null. A JSON body is re-encoded compactly with sorted object keys,
// so formatting and key order do not change the key. Anything else is
// hashed as is.
func canonicalBody(body []byte) []byte {
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("null")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return body
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return canonical
}

// EncodeBody serializes a request body the way it is sent on the wire.
// nil yields no bytes, []byte and json.RawMessage pass through, everything
// else is JSON encoded. encoding/json sorts map keys, so logically equal maps
// encode identically.
func EncodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: failed to encode body: %w", err)
		}
		return data, nil
	}
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
