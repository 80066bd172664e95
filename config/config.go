// Package config loads a client setup from REQCLIENT_* environment
// variables.
//
// Credential fields and header values may hold secret references (see
// package secret). Anything else in them is taken literally, so a token
// may contain '$':
//
//	REQCLIENT_TOKEN=secretref:file:api-token
//	REQCLIENT_SECRETS_DIR=/run/secrets
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/reqclient/auth"
	"github.com/jonwraymond/reqclient/cache"
	"github.com/jonwraymond/reqclient/client"
	"github.com/jonwraymond/reqclient/observe"
	"github.com/jonwraymond/reqclient/resilience"
	"github.com/jonwraymond/reqclient/secret"
)

// Prefix is prepended to every variable name.
const Prefix = "REQCLIENT_"

// ErrInvalidConfig wraps every validation failure of Load.
var ErrInvalidConfig = errors.New("config: invalid configuration")

var validate = validator.New()

// Config is the environment-driven setup of a client and its telemetry.
type Config struct {
	BaseURL      string        `env:"BASE_URL" validate:"omitempty,url"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gte=0"`
	Retries      int           `env:"RETRIES" envDefault:"3" validate:"gte=0"`
	RetryDelay   time.Duration `env:"RETRY_DELAY" envDefault:"1s" validate:"gte=0"`
	Cache        bool          `env:"CACHE" envDefault:"true"`
	CacheTimeout time.Duration `env:"CACHE_TIMEOUT" envDefault:"5m" validate:"gte=0"`
	Dedup        bool          `env:"DEDUP"`

	// Headers are sent with every request, as "Name:value,Name2:value2".
	Headers map[string]string `env:"HEADERS"`

	Redis      RedisConfig `envPrefix:"REDIS_"`
	Auth       AuthConfig
	Resilience ResilienceConfig
	Telemetry  TelemetryConfig

	// SecretsDir enables the "file" secret provider rooted at this directory.
	SecretsDir string `env:"SECRETS_DIR"`
}

// RedisConfig selects a Redis response cache. An empty Addr keeps the
// per-client memory cache.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" validate:"gte=0"`
	Prefix   string `env:"PREFIX" envDefault:"reqclient:"`
}

// AuthConfig holds credentials. Every configured mechanism is applied, in
// the order bearer token, API key, JWT, OAuth2.
type AuthConfig struct {
	Token string `env:"TOKEN"`

	APIKey       string `env:"API_KEY"`
	APIKeyHeader string `env:"API_KEY_HEADER" envDefault:"X-API-Key"`

	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER"`
	JWTSubject  string        `env:"JWT_SUBJECT"`
	JWTAudience []string      `env:"JWT_AUDIENCE"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"5m" validate:"gte=0"`

	OAuth2ClientID     string   `env:"OAUTH2_CLIENT_ID"`
	OAuth2ClientSecret string   `env:"OAUTH2_CLIENT_SECRET"`
	OAuth2TokenURL     string   `env:"OAUTH2_TOKEN_URL" validate:"omitempty,url"`
	OAuth2Scopes       []string `env:"OAUTH2_SCOPES"`
}

// ResilienceConfig enables the optional guards. Zero values disable them.
type ResilienceConfig struct {
	BreakerMaxFailures  int           `env:"BREAKER_MAX_FAILURES" validate:"gte=0"`
	BreakerResetTimeout time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"30s" validate:"gte=0"`

	RateLimit float64 `env:"RATE_LIMIT" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" envDefault:"1" validate:"gte=0"`

	MaxConcurrent int           `env:"MAX_CONCURRENT" validate:"gte=0"`
	MaxWait       time.Duration `env:"MAX_WAIT" envDefault:"1s" validate:"gte=0"`
}

// TelemetryConfig feeds observe.Config.
type TelemetryConfig struct {
	ServiceName     string  `env:"SERVICE_NAME" envDefault:"reqclient"`
	Version         string  `env:"VERSION" envDefault:"dev"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogPretty       bool    `env:"LOG_PRETTY"`
	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"none" validate:"oneof=otlp jaeger stdout none"`
	SampleRate      float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1" validate:"gte=0,lte=1"`
	MetricsExporter string  `env:"METRICS_EXPORTER" envDefault:"none" validate:"oneof=otlp prometheus stdout none"`
}

// Load reads the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, nil)
}

// LoadFrom reads environ instead of the process environment when it is
// non-nil. Credentials are resolved through secret references and the
// result is validated.
func LoadFrom(ctx context.Context, environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      Prefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.resolveSecrets(ctx, environ); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// resolveSecrets replaces secret references in credential fields and
// header values. Only OAuth2 scopes get environment expansion, against the
// same environment the configuration was parsed from.
func (c *Config) resolveSecrets(ctx context.Context, environ map[string]string) error {
	var lookup secret.LookupFunc
	if environ != nil {
		lookup = secret.MapLookup(environ)
	}
	resolver, err := c.secretResolver(lookup)
	if err != nil {
		return err
	}
	defer resolver.Close()

	fields := map[string]*string{
		"TOKEN":                &c.Auth.Token,
		"API_KEY":              &c.Auth.APIKey,
		"JWT_SECRET":           &c.Auth.JWTSecret,
		"OAUTH2_CLIENT_SECRET": &c.Auth.OAuth2ClientSecret,
		"REDIS_PASSWORD":       &c.Redis.Password,
	}
	for name, field := range fields {
		if *field == "" {
			continue
		}
		v, err := resolver.ResolveRefs(ctx, *field)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, Prefix, name, err)
		}
		*field = v
	}

	for k, v := range c.Headers {
		resolved, err := resolver.ResolveRefs(ctx, v)
		if err != nil {
			return fmt.Errorf("%w: %sHEADERS %s: %w", ErrInvalidConfig, Prefix, k, err)
		}
		c.Headers[k] = resolved
	}

	if len(c.Auth.OAuth2Scopes) > 0 {
		scopes, err := resolver.ResolveSlice(ctx, c.Auth.OAuth2Scopes)
		if err != nil {
			return fmt.Errorf("%w: %sOAUTH2_SCOPES: %w", ErrInvalidConfig, Prefix, err)
		}
		c.Auth.OAuth2Scopes = scopes
	}
	return nil
}

func (c *Config) secretResolver(lookup secret.LookupFunc) (*secret.Resolver, error) {
	envProvider, err := secret.DefaultRegistry.Create("env", map[string]any{"lookup": lookup})
	if err != nil {
		return nil, err
	}
	resolver := secret.NewResolver(true, envProvider)
	resolver.SetLookup(lookup)

	if c.SecretsDir != "" {
		fileProvider, err := secret.DefaultRegistry.Create("file", map[string]any{"dir": c.SecretsDir})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		resolver.Register(fileProvider)
	}
	return resolver, nil
}

// ClientConfig returns the core client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:      c.BaseURL,
		Timeout:      c.Timeout,
		Retries:      c.Retries,
		RetryDelay:   c.RetryDelay,
		Cache:        c.Cache,
		CacheTimeout: c.CacheTimeout,
	}
}

// ClientOptions builds the options for client.New. The returned closer
// releases the Redis connection, if one was opened.
func (c *Config) ClientOptions() ([]client.Option, io.Closer, error) {
	opts := []client.Option{client.WithConfig(c.ClientConfig())}
	var closer io.Closer = nopCloser{}

	if len(c.Headers) > 0 {
		h := make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			h.Set(k, v)
		}
		opts = append(opts, client.WithHeaders(h))
	}

	if c.Dedup {
		opts = append(opts, client.WithDeduplication())
	}

	if c.Redis.Addr != "" {
		store := cache.NewRedisCache(
			cache.NewRedisClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB),
			cache.RedisConfig{Prefix: c.Redis.Prefix},
		)
		opts = append(opts, client.WithCacheStore(store))
		closer = store
	}

	provider, err := c.authProvider()
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	if provider != nil {
		opts = append(opts, client.WithAuth(provider))
	}

	r := c.Resilience
	if r.BreakerMaxFailures > 0 {
		opts = append(opts, client.WithCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  r.BreakerMaxFailures,
			ResetTimeout: r.BreakerResetTimeout,
		}))
	}
	if r.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(resilience.RateLimiterConfig{
			Rate:        r.RateLimit,
			Burst:       r.RateBurst,
			WaitOnLimit: true,
			MaxWait:     r.MaxWait,
		}))
	}
	if r.MaxConcurrent > 0 {
		opts = append(opts, client.WithMaxConcurrent(r.MaxConcurrent, r.MaxWait))
	}

	return opts, closer, nil
}

func (c *Config) authProvider() (auth.Provider, error) {
	a := c.Auth
	var providers []auth.Provider

	if a.Token != "" {
		p, err := auth.NewBearerToken(a.Token)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if a.APIKey != "" {
		p, err := auth.NewAPIKey(a.APIKey, auth.APIKeyConfig{HeaderName: a.APIKeyHeader})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if a.JWTSecret != "" {
		p, err := auth.NewJWTSigner(auth.JWTConfig{
			Key:      []byte(a.JWTSecret),
			Issuer:   a.JWTIssuer,
			Subject:  a.JWTSubject,
			Audience: a.JWTAudience,
			TTL:      a.JWTTTL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if a.OAuth2ClientID != "" || a.OAuth2TokenURL != "" {
		p, err := auth.NewOAuth2ClientCredentials(auth.OAuth2Config{
			ClientID:     a.OAuth2ClientID,
			ClientSecret: a.OAuth2ClientSecret,
			TokenURL:     a.OAuth2TokenURL,
			Scopes:       a.OAuth2Scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: oauth2: %w", ErrInvalidConfig, err)
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		return nil, nil
	case 1:
		return providers[0], nil
	default:
		return auth.NewChain(providers...), nil
	}
}

// ObserveConfig returns the telemetry configuration. Logs go to out.
func (c *Config) ObserveConfig(out io.Writer) observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     t.Version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.SampleRate,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
			Pretty:  t.LogPretty,
			Output:  out,
		},
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
