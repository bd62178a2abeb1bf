// Package cache holds the redirect cache adapters for the shortener.
package cache

import (
	"time"

	"github.com/sundayezeilo/shortlink/internal/shortener"
)

// entryTTL returns how long entry may live: the earlier of the safety TTL and
// the link's own expiry. Zero means no TTL; ok is false when the link has
// already expired and must not be stored.
func entryTTL(entry shortener.CacheEntry, safetyTTL time.Duration, now time.Time) (ttl time.Duration, ok bool) {
	ttl = safetyTTL
	if entry.ExpiresAt == nil {
		return ttl, true
	}

	until := entry.ExpiresAt.Sub(now)
	if until <= 0 {
		return 0, false
	}
	if ttl == 0 || until < ttl {
		ttl = until
	}
	return ttl, true
}
