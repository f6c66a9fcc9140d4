// Package cache stores short-lived snapshots, such as the existing offer
// set, in memory or in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casino-research/internal/config"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the cache selected by cfg.Driver.
func New(ctx context.Context, cfg config.CacheConfig, defaultTTL time.Duration) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(defaultTTL, 2*defaultTTL), nil
	case "redis":
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

// GetJSON decodes the cached value at key into dest. It reports false when
// the key is absent.
func GetJSON(ctx context.Context, c Cache, key string, dest any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, eris.Wrapf(err, "cache: decode %s", key)
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it at key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", key)
	}
	return c.Set(ctx, key, data, ttl)
}
