package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sundayezeilo/shortlink/internal/shortener"
)

// Memory is a process-local shortener.Cache. It is only coherent for a single
// server process.
type Memory struct {
	store     *gocache.Cache
	safetyTTL time.Duration
	now       func() time.Time
}

// MemoryConfig holds configuration for the in-process cache.
type MemoryConfig struct {
	SafetyTTL       time.Duration
	CleanupInterval time.Duration // default 1m
	Clock           func() time.Time
}

// NewMemory creates an in-process redirect cache.
func NewMemory(cfg MemoryConfig) *Memory {
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Memory{
		store:     gocache.New(gocache.NoExpiration, cleanup),
		safetyTTL: cfg.SafetyTTL,
		now:       clock,
	}
}

func (c *Memory) Get(_ context.Context, code string) (shortener.CacheEntry, bool, error) {
	v, ok := c.store.Get(code)
	if !ok {
		return shortener.CacheEntry{}, false, nil
	}
	entry, ok := v.(shortener.CacheEntry)
	return entry, ok, nil
}

func (c *Memory) Set(_ context.Context, code string, entry shortener.CacheEntry) error {
	ttl, ok := entryTTL(entry, c.safetyTTL, c.now())
	if !ok {
		return nil
	}
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(code, entry, ttl)
	return nil
}

func (c *Memory) Invalidate(_ context.Context, code string) error {
	c.store.Delete(code)
	return nil
}

// Len reports the number of cached entries, including ones not yet cleaned up.
func (c *Memory) Len() int {
	return c.store.ItemCount()
}
