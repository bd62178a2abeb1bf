package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/shortener"
)

// DefaultKeyPrefix namespaces redirect entries in a shared Redis.
const DefaultKeyPrefix = "cached_link:"

// Redis is a shortener.Cache shared by every server process.
type Redis struct {
	client    redis.Cmdable
	prefix    string
	safetyTTL time.Duration
	now       func() time.Time
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	KeyPrefix string
	SafetyTTL time.Duration // upper bound on entry lifetime; 0 disables
	Clock     func() time.Time
}

// NewRedis wraps client as a redirect cache.
func NewRedis(client redis.Cmdable, cfg RedisConfig) *Redis {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Redis{
		client:    client,
		prefix:    prefix,
		safetyTTL: cfg.SafetyTTL,
		now:       clock,
	}
}

func (c *Redis) key(code string) string {
	return c.prefix + code
}

func (c *Redis) Get(ctx context.Context, code string) (shortener.CacheEntry, bool, error) {
	const op = "cache.redis.Get"

	raw, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return shortener.CacheEntry{}, false, nil
	}
	if err != nil {
		return shortener.CacheEntry{}, false, errx.E(op, errx.Unavailable, err)
	}

	var entry shortener.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return shortener.CacheEntry{}, false, errx.E(op, errx.Internal, err)
	}
	return entry, true, nil
}

func (c *Redis) Set(ctx context.Context, code string, entry shortener.CacheEntry) error {
	const op = "cache.redis.Set"

	ttl, ok := entryTTL(entry, c.safetyTTL, c.now())
	if !ok {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}
	if err := c.client.Set(ctx, c.key(code), raw, ttl).Err(); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, code string) error {
	const op = "cache.redis.Invalidate"

	if err := c.client.Del(ctx, c.key(code)).Err(); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}
