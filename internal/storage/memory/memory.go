// Package memory is an in-process shortener.Repository.
//
// It honors the same unique and liveness rules as the Postgres store, with a
// single mutex standing in for row locks. State is lost on restart.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/shortener"
)

var errNoLink = errors.New("no link")

// Store is a mutex-guarded map of links keyed by short code, with a secondary
// index on original URL.
type Store struct {
	mu         sync.RWMutex
	byCode     map[string]shortener.Link
	byOriginal map[string]string // original URL -> short code
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byCode:     make(map[string]shortener.Link),
		byOriginal: make(map[string]string),
	}
}

var _ shortener.Repository = (*Store)(nil)

func live(l shortener.Link, now time.Time) bool {
	return !l.ExpiredAt(now)
}

// clone detaches the ExpiresAt pointer from the stored record.
func clone(l shortener.Link) shortener.Link {
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		l.ExpiresAt = &t
	}
	return l
}

func (s *Store) FindByOriginal(ctx context.Context, originalURL string) (shortener.Link, error) {
	const op = "storage.memory.FindByOriginal"
	if err := ctx.Err(); err != nil {
		return shortener.Link{}, errx.E(op, errx.Unavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.byOriginal[originalURL]
	if !ok {
		return shortener.Link{}, errx.E(op, errx.NotFound, errNoLink)
	}
	return clone(s.byCode[code]), nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (shortener.Link, error) {
	const op = "storage.memory.FindByCode"
	if err := ctx.Err(); err != nil {
		return shortener.Link{}, errx.E(op, errx.Unavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.byCode[code]
	if !ok {
		return shortener.Link{}, errx.E(op, errx.NotFound, errNoLink)
	}
	return clone(l), nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, link shortener.Link) (shortener.Link, error) {
	const op = "storage.memory.InsertIfAbsent"
	if err := ctx.Err(); err != nil {
		return shortener.Link{}, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[link.ShortCode]; taken {
		return shortener.Link{}, errx.E(op, errx.Conflict, shortener.ErrCodeTaken)
	}
	if _, taken := s.byOriginal[link.OriginalURL]; taken {
		return shortener.Link{}, errx.E(op, errx.Conflict, shortener.ErrOriginalTaken)
	}

	if link.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return shortener.Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}
	if link.UsageCount < 1 {
		link.UsageCount = 1
	}
	link.LastUsedAt = link.CreatedAt

	link = clone(link)
	s.byCode[link.ShortCode] = link
	s.byOriginal[link.OriginalURL] = link.ShortCode
	return clone(link), nil
}

func (s *Store) UpdateCode(ctx context.Context, oldCode, newCode, subject string, now time.Time) (shortener.Link, error) {
	const op = "storage.memory.UpdateCode"
	if err := ctx.Err(); err != nil {
		return shortener.Link{}, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byCode[oldCode]
	if !ok || !live(l, now) || !l.OwnedBy(subject) {
		return shortener.Link{}, errx.E(op, errx.NotFound, errNoLink)
	}
	if _, taken := s.byCode[newCode]; taken {
		return shortener.Link{}, errx.E(op, errx.Conflict, shortener.ErrCodeTaken)
	}

	delete(s.byCode, oldCode)
	l.ShortCode = newCode
	l.IsCustomAlias = true
	s.byCode[newCode] = l
	s.byOriginal[l.OriginalURL] = newCode
	return clone(l), nil
}

func (s *Store) DeleteByCode(ctx context.Context, code, subject string, now time.Time) error {
	const op = "storage.memory.DeleteByCode"
	if err := ctx.Err(); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byCode[code]
	if !ok || !live(l, now) || !l.OwnedBy(subject) {
		return errx.E(op, errx.NotFound, errNoLink)
	}
	s.remove(l)
	return nil
}

func (s *Store) DeleteExpiredByCode(ctx context.Context, code string, now time.Time) (bool, error) {
	const op = "storage.memory.DeleteExpiredByCode"
	if err := ctx.Err(); err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byCode[code]
	if !ok || live(l, now) {
		return false, nil
	}
	s.remove(l)
	return true, nil
}

func (s *Store) DeleteExpiredByOriginal(ctx context.Context, originalURL string, now time.Time) (bool, error) {
	const op = "storage.memory.DeleteExpiredByOriginal"
	if err := ctx.Err(); err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.byOriginal[originalURL]
	if !ok || live(s.byCode[code], now) {
		return false, nil
	}
	s.remove(s.byCode[code])
	return true, nil
}

func (s *Store) IncrementUsage(ctx context.Context, code string, now time.Time) (shortener.Link, error) {
	const op = "storage.memory.IncrementUsage"
	if err := ctx.Err(); err != nil {
		return shortener.Link{}, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byCode[code]
	if !ok || !live(l, now) {
		return shortener.Link{}, errx.E(op, errx.NotFound, errNoLink)
	}

	l.UsageCount++
	if now.After(l.CreatedAt) {
		l.LastUsedAt = now
	} else {
		l.LastUsedAt = l.CreatedAt
	}
	s.byCode[code] = l
	return clone(l), nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.memory.DeleteExpired"
	if err := ctx.Err(); err != nil {
		return 0, errx.E(op, errx.Unavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, l := range s.byCode {
		if !live(l, now) {
			s.remove(l)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored links, live or expired.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCode)
}

// remove must be called with mu held.
func (s *Store) remove(l shortener.Link) {
	delete(s.byCode, l.ShortCode)
	if s.byOriginal[l.OriginalURL] == l.ShortCode {
		delete(s.byOriginal, l.OriginalURL)
	}
}
