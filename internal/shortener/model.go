package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Link is the durable mapping between an original URL and its short code.
type Link struct {
	ID            uuid.UUID
	OwnerID       string // empty when created anonymously
	OriginalURL   string
	ShortCode     string
	IsCustomAlias bool
	CreatedAt     time.Time
	LastUsedAt    time.Time
	ExpiresAt     *time.Time
	UsageCount    int64
}

// ExpiredAt reports whether the link is past its expiry at now.
// An expiry equal to now counts as expired.
func (l Link) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// OwnedBy reports whether subject may modify the link. Anonymous links can be
// modified by any authenticated subject.
func (l Link) OwnedBy(subject string) bool {
	return l.OwnerID == "" || l.OwnerID == subject
}

// CacheEntry is the derived, disposable snapshot kept in the redirect cache.
type CacheEntry struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CachedAt    time.Time  `json:"cached_at"`
}

// ExpiredAt reports whether the cached link is past its expiry at now.
func (e CacheEntry) ExpiredAt(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

func newCacheEntry(l Link, now time.Time) CacheEntry {
	return CacheEntry{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		ExpiresAt:   l.ExpiresAt,
		CachedAt:    now,
	}
}

// Stats is the public usage view of a link.
type Stats struct {
	ShortCode   string     `json:"short_code" yaml:"short_code"`
	OriginalURL string     `json:"original_url" yaml:"original_url"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UsageCount  int64      `json:"usage_count" yaml:"usage_count"`
	LastUsedAt  time.Time  `json:"last_used_at" yaml:"last_used_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Stats returns the usage view of l.
func (l Link) Stats() Stats {
	return Stats{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		CreatedAt:   l.CreatedAt,
		UsageCount:  l.UsageCount,
		LastUsedAt:  l.LastUsedAt,
		ExpiresAt:   l.ExpiresAt,
	}
}
