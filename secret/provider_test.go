package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("REQCLIENT_TEST_TOKEN", "tok")
	p := &EnvProvider{}
	ctx := context.Background()

	got, err := p.Resolve(ctx, "REQCLIENT_TEST_TOKEN")
	if err != nil || got != "tok" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}

	if _, err := p.Resolve(ctx, "REQCLIENT_TEST_UNSET_VARIABLE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() missing error = %v, want ErrNotFound", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "api-token"), []byte("s3cr3t\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := &FileProvider{Dir: dir}
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"trims newline", "api-token", "s3cr3t", nil},
		{"missing", "nope", "", ErrNotFound},
		{"escape", "../etc/passwd", "", ErrInvalidRef},
		{"absolute", "/etc/passwd", "", ErrInvalidRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Resolve(ctx, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Resolve() = %q, %v", got, err)
			}
		})
	}
}

func TestResolver_WithFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(true, &FileProvider{Dir: dir}, &EnvProvider{})

	got, err := r.ResolveValue(context.Background(), "Bearer secretref:file:token")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "Bearer abc" {
		t.Fatalf("ResolveValue() = %q", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestEnvProvider_LookupAndPrefix(t *testing.T) {
	p := &EnvProvider{
		Prefix: "APP_",
		Lookup: MapLookup(map[string]string{"APP_TOKEN": "mapped"}),
	}

	got, err := p.Resolve(context.Background(), "TOKEN")
	if err != nil || got != "mapped" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if _, err := p.Resolve(context.Background(), "OTHER"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}
