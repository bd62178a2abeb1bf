package shortener

import (
	"context"
	"errors"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// Resolve returns the original URL for code.
//
// A cache hit returns without touching the store, so usage is not counted.
// On a miss the usage counter is incremented atomically, and the link is
// cached on the request that brings it to the warm threshold.
func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	if code == "" {
		return "", errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	now := s.now()

	if entry, ok := s.cached(ctx, code, now); ok {
		return entry.OriginalURL, nil
	}

	link, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByCode(ctx, code)
	})
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}
	if link.ExpiredAt(now) {
		s.reclaimCode(ctx, code, now)
		return "", errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	used, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.IncrementUsage(ctx, code, now)
	})
	if err != nil {
		// The link expired or was removed between the read and the increment.
		if errx.Is(err, errx.NotFound) {
			return "", errx.E(op, errx.NotFound, ErrLinkNotFound)
		}
		return "", errx.E(op, errx.KindOf(err), err)
	}

	if used.UsageCount == s.warmThreshold {
		s.warm(ctx, used, now)
	}

	return used.OriginalURL, nil
}

// cached returns a live cache entry. Cache failures degrade to a miss.
func (s *service) cached(ctx context.Context, code string, now time.Time) (CacheEntry, bool) {
	entry, ok, err := s.cache.Get(ctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "redirect cache read failed",
			"short_code", code,
			"error", err.Error(),
		)
		return CacheEntry{}, false
	}
	if !ok {
		return CacheEntry{}, false
	}
	if entry.ExpiredAt(now) {
		s.invalidate(ctx, code)
		return CacheEntry{}, false
	}
	return entry, true
}

func (s *service) warm(ctx context.Context, link Link, now time.Time) {
	if err := s.cache.Set(ctx, link.ShortCode, newCacheEntry(link, now)); err != nil {
		s.logger.WarnContext(ctx, "failed to cache redirect",
			"short_code", link.ShortCode,
			"error", err.Error(),
		)
		return
	}
	s.logger.DebugContext(ctx, "redirect cached",
		"short_code", link.ShortCode,
		"usage_count", link.UsageCount,
	)
}
