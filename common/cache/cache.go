package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// NoExpiration keeps a key until it is deleted. A zero ttl means the default TTL.
const NoExpiration time.Duration = -1

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Get(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	RedisURL string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL: time.Hour,
	}
}

// Expiration resolves the ttl passed to Set into an absolute lifetime.
// It returns 0 for keys that never expire.
func (o Options) Expiration(ttl time.Duration) time.Duration {
	switch {
	case ttl == NoExpiration:
		return 0
	case ttl == 0 && o.DefaultTTL > 0:
		return o.DefaultTTL
	case ttl == 0:
		return DefaultOptions().DefaultTTL
	default:
		return ttl
	}
}
