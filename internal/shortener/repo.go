package shortener

import (
	"context"
	"time"
)

// Repository defines the persistence operations for Link entities.
//
// Every method reports failures as *errx.Error with kind NotFound, Conflict
// (wrapping ErrCodeTaken or ErrOriginalTaken) or Unavailable. Methods that take
// now treat a link as live while its expiry is strictly after now.
type Repository interface {
	FindByOriginal(ctx context.Context, originalURL string) (Link, error)
	FindByCode(ctx context.Context, code string) (Link, error)

	// InsertIfAbsent writes link in a single conditional statement; the store's
	// unique constraints decide the winner between concurrent writers.
	InsertIfAbsent(ctx context.Context, link Link) (Link, error)

	// UpdateCode moves a live link from oldCode to newCode when subject may modify it.
	UpdateCode(ctx context.Context, oldCode, newCode, subject string, now time.Time) (Link, error)

	// DeleteByCode removes a live link when subject may modify it.
	DeleteByCode(ctx context.Context, code, subject string, now time.Time) error

	// DeleteExpiredByCode and DeleteExpiredByOriginal remove a single link only if
	// it has already expired. They report whether a row was removed.
	DeleteExpiredByCode(ctx context.Context, code string, now time.Time) (bool, error)
	DeleteExpiredByOriginal(ctx context.Context, originalURL string, now time.Time) (bool, error)

	// IncrementUsage bumps the usage counter and last-used time of a live link
	// in one atomic update and returns the post-increment record.
	IncrementUsage(ctx context.Context, code string, now time.Time) (Link, error)

	// DeleteExpired removes every link expired at now in one statement.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cache is the redirect cache. A miss is reported as ok == false with a nil
// error; losing entries at any time is allowed.
type Cache interface {
	Get(ctx context.Context, code string) (CacheEntry, bool, error)
	Set(ctx context.Context, code string, entry CacheEntry) error
	Invalidate(ctx context.Context, code string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (CacheEntry, bool, error) { return CacheEntry{}, false, nil }
func (nopCache) Set(context.Context, string, CacheEntry) error         { return nil }
func (nopCache) Invalidate(context.Context, string) error              { return nil }
