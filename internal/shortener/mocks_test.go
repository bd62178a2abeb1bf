package shortener

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

/***************
 * Mocks
 ***************/

var errMockNotFound = errors.New("not found")

func notFound() error {
	return errx.E("repo.mock", errx.NotFound, errMockNotFound)
}

func conflict(cause error) error {
	return errx.E("repo.mock", errx.Conflict, cause)
}

func unavailable() error {
	return errx.E("repo.mock", errx.Unavailable, errors.New("connection refused"))
}

// mockRepository implements Repository for testing.
type mockRepository struct {
	findByOriginalFunc          func(ctx context.Context, originalURL string) (Link, error)
	findByCodeFunc              func(ctx context.Context, code string) (Link, error)
	insertIfAbsentFunc          func(ctx context.Context, link Link) (Link, error)
	updateCodeFunc              func(ctx context.Context, oldCode, newCode, subject string, now time.Time) (Link, error)
	deleteByCodeFunc            func(ctx context.Context, code, subject string, now time.Time) error
	deleteExpiredByCodeFunc     func(ctx context.Context, code string, now time.Time) (bool, error)
	deleteExpiredByOriginalFunc func(ctx context.Context, originalURL string, now time.Time) (bool, error)
	incrementUsageFunc          func(ctx context.Context, code string, now time.Time) (Link, error)
	deleteExpiredFunc           func(ctx context.Context, now time.Time) (int64, error)

	inserts int
}

func (m *mockRepository) FindByOriginal(ctx context.Context, originalURL string) (Link, error) {
	if m.findByOriginalFunc != nil {
		return m.findByOriginalFunc(ctx, originalURL)
	}
	return Link{}, notFound()
}

func (m *mockRepository) FindByCode(ctx context.Context, code string) (Link, error) {
	if m.findByCodeFunc != nil {
		return m.findByCodeFunc(ctx, code)
	}
	return Link{}, notFound()
}

func (m *mockRepository) InsertIfAbsent(ctx context.Context, link Link) (Link, error) {
	m.inserts++
	if m.insertIfAbsentFunc != nil {
		return m.insertIfAbsentFunc(ctx, link)
	}
	link.ID = uuid.New()
	return link, nil
}

func (m *mockRepository) UpdateCode(ctx context.Context, oldCode, newCode, subject string, now time.Time) (Link, error) {
	if m.updateCodeFunc != nil {
		return m.updateCodeFunc(ctx, oldCode, newCode, subject, now)
	}
	return Link{}, notFound()
}

func (m *mockRepository) DeleteByCode(ctx context.Context, code, subject string, now time.Time) error {
	if m.deleteByCodeFunc != nil {
		return m.deleteByCodeFunc(ctx, code, subject, now)
	}
	return nil
}

func (m *mockRepository) DeleteExpiredByCode(ctx context.Context, code string, now time.Time) (bool, error) {
	if m.deleteExpiredByCodeFunc != nil {
		return m.deleteExpiredByCodeFunc(ctx, code, now)
	}
	return false, nil
}

func (m *mockRepository) DeleteExpiredByOriginal(ctx context.Context, originalURL string, now time.Time) (bool, error) {
	if m.deleteExpiredByOriginalFunc != nil {
		return m.deleteExpiredByOriginalFunc(ctx, originalURL, now)
	}
	return false, nil
}

func (m *mockRepository) IncrementUsage(ctx context.Context, code string, now time.Time) (Link, error) {
	if m.incrementUsageFunc != nil {
		return m.incrementUsageFunc(ctx, code, now)
	}
	return Link{}, notFound()
}

func (m *mockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// mockCache implements Cache and records writes.
type mockCache struct {
	getFunc        func(ctx context.Context, code string) (CacheEntry, bool, error)
	setFunc        func(ctx context.Context, code string, entry CacheEntry) error
	invalidateFunc func(ctx context.Context, code string) error

	sets          []CacheEntry
	invalidations []string
}

func (m *mockCache) Get(ctx context.Context, code string) (CacheEntry, bool, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, code)
	}
	return CacheEntry{}, false, nil
}

func (m *mockCache) Set(ctx context.Context, code string, entry CacheEntry) error {
	m.sets = append(m.sets, entry)
	if m.setFunc != nil {
		return m.setFunc(ctx, code, entry)
	}
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, code string) error {
	m.invalidations = append(m.invalidations, code)
	if m.invalidateFunc != nil {
		return m.invalidateFunc(ctx, code)
	}
	return nil
}

// mockCodeGenerator hands out codes in order, then repeats the last one.
type mockCodeGenerator struct {
	codes     []string
	err       error
	callCount int
}

func (m *mockCodeGenerator) Generate(int) (string, error) {
	m.callCount++
	if m.err != nil {
		return "", m.err
	}
	if len(m.codes) == 0 {
		return "abc123", nil
	}
	idx := min(m.callCount-1, len(m.codes)-1)
	return m.codes[idx], nil
}

/***************
 * Helpers
 ***************/

var testNow = time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func timePtrOf(t time.Time) *time.Time { return &t }

func liveLink(code, original string) Link {
	return Link{
		ID:          uuid.New(),
		OriginalURL: original,
		ShortCode:   code,
		CreatedAt:   testNow.Add(-time.Hour),
		LastUsedAt:  testNow.Add(-time.Hour),
		UsageCount:  1,
	}
}

func expiredLink(code, original string) Link {
	l := liveLink(code, original)
	l.ExpiresAt = timePtrOf(testNow.Add(-time.Minute))
	return l
}

func newTestService(repo Repository, cache Cache, gen *mockCodeGenerator) *service {
	cfg := &ServiceConfig{
		Cache:        cache,
		MaxRetries:   3,
		StoreTimeout: time.Second,
		Clock:        fixedClock,
	}
	if gen != nil {
		cfg.CodeGenerator = gen
	}
	return NewService(repo, cfg).(*service)
}
