package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	// Prefix namespaces the keys of one client instance.
	// Default: "reqclient:"
	Prefix string

	// ScanCount is the batch size used by Clear.
	// Default: 100
	ScanCount int64
}

// RedisCache stores entries in Redis. Expiry is delegated to Redis via PX.
type RedisCache struct {
	client redis.UniversalClient
	config RedisConfig
}

// NewRedisClient creates a single-node Redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client redis.UniversalClient, config RedisConfig) *RedisCache {
	if config.Prefix == "" {
		config.Prefix = "reqclient:"
	}
	if config.ScanCount <= 0 {
		config.ScanCount = 100
	}
	return &RedisCache{client: client, config: config}
}

// Get retrieves a value. Backend errors are reported as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, c.config.Prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores a value with the given TTL. TTL<=0 means no caching.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	return c.client.Set(ctx, c.config.Prefix+key, value, ttl).Err()
}

// Delete removes a value. Idempotent - no error on miss.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.config.Prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Clear removes every key under the configured prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.config.Prefix+"*", c.config.ScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks connectivity to the backend.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
