package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "GET https://api.example.com/users/1 e3b0c44298fc1c14", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestEntry_Fresh(t *testing.T) {
	stored := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{Value: []byte(`{}`), StoredAt: stored}
	lifetime := 5 * time.Minute

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just stored", 0, true},
		{"within lifetime", 4 * time.Minute, true},
		{"exactly lifetime", lifetime, true},
		{"past lifetime", lifetime + time.Nanosecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Fresh(stored.Add(tt.age), lifetime); got != tt.want {
				t.Errorf("Fresh(age=%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

// TestCacheInterface_CompileCheck verifies the Cache interface contract.
func TestCacheInterface_CompileCheck(t *testing.T) {
	var _ Cache = (*mockCache)(nil)
}

type mockCache struct{}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (m *mockCache) Delete(ctx context.Context, key string) error { return nil }
func (m *mockCache) Clear(ctx context.Context) error              { return nil }
