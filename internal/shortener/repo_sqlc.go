package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/shortlink/internal/db/sqlc"
	"github.com/sundayezeilo/shortlink/internal/errx"
)

// querier is an internal interface that abstracts *db.Queries
type querier interface {
	CreateLink(ctx context.Context, arg db.CreateLinkParams) (db.Link, error)
	GetLinkByCode(ctx context.Context, shortCode string) (db.Link, error)
	GetLinkByOriginalURL(ctx context.Context, originalUrl string) (db.Link, error)
	IncrementLinkUsage(ctx context.Context, arg db.IncrementLinkUsageParams) (db.Link, error)
	UpdateLinkCode(ctx context.Context, arg db.UpdateLinkCodeParams) (db.Link, error)
	DeleteLinkByCode(ctx context.Context, arg db.DeleteLinkByCodeParams) (int64, error)
	DeleteExpiredLinkByCode(ctx context.Context, arg db.DeleteExpiredLinkByCodeParams) (int64, error)
	DeleteExpiredLinkByOriginalURL(ctx context.Context, arg db.DeleteExpiredLinkByOriginalURLParams) (int64, error)
	DeleteExpiredLinks(ctx context.Context, now pgtype.Timestamptz) (int64, error)
}

type repo struct {
	q     querier
	newID func() (uuid.UUID, error)
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	NewID func() (uuid.UUID, error) // defaults to uuid.NewV7
}

// NewRepository creates a Postgres-backed Repository over sqlc queries.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// UUID v7 keeps inserts roughly ordered in the primary key index.
	newID := config.NewID
	if newID == nil {
		newID = uuid.NewV7
	}

	return &repo{
		q:     q,
		newID: newID,
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nullableTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timestamptz(*t)
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toDomainLink(x db.Link) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}
	lastUsedAt, err := mustTime(x.LastUsedAt, "last_used_at")
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:            x.ID,
		OwnerID:       x.OwnerID.String,
		OriginalURL:   x.OriginalUrl,
		ShortCode:     x.ShortCode,
		IsCustomAlias: x.IsCustomAlias,
		CreatedAt:     createdAt,
		LastUsedAt:    lastUsedAt,
		ExpiresAt:     timePtr(x.ExpiresAt),
		UsageCount:    x.UsageCount,
	}, nil
}

func mapRepoError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errx.E(op, errx.NotFound, err)
	}
	if cause := uniqueViolationCause(err); cause != nil {
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", cause, err))
	}
	// Includes context deadline and cancellation.
	return errx.E(op, errx.Unavailable, err)
}

func fromRow(op string, x db.Link, err error) (Link, error) {
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	link, err := toDomainLink(x)
	if err != nil {
		return Link{}, errx.E(op, errx.Internal, err)
	}
	return link, nil
}

func (r *repo) FindByOriginal(ctx context.Context, originalURL string) (Link, error) {
	const op = "shortener.repo.FindByOriginal"

	x, err := r.q.GetLinkByOriginalURL(ctx, originalURL)
	return fromRow(op, x, err)
}

func (r *repo) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.FindByCode"

	x, err := r.q.GetLinkByCode(ctx, code)
	return fromRow(op, x, err)
}

func (r *repo) InsertIfAbsent(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.InsertIfAbsent"

	if link.ID == uuid.Nil {
		id, err := r.newID()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	x, err := r.q.CreateLink(ctx, db.CreateLinkParams{
		ID:            link.ID,
		OwnerID:       nullableText(link.OwnerID),
		OriginalUrl:   link.OriginalURL,
		ShortCode:     link.ShortCode,
		IsCustomAlias: link.IsCustomAlias,
		CreatedAt:     timestamptz(link.CreatedAt),
		ExpiresAt:     nullableTimestamptz(link.ExpiresAt),
	})
	return fromRow(op, x, err)
}

func (r *repo) UpdateCode(ctx context.Context, oldCode, newCode, subject string, now time.Time) (Link, error) {
	const op = "shortener.repo.UpdateCode"

	x, err := r.q.UpdateLinkCode(ctx, db.UpdateLinkCodeParams{
		NewCode: newCode,
		OldCode: oldCode,
		Now:     timestamptz(now),
		Subject: subject,
	})
	return fromRow(op, x, err)
}

func (r *repo) DeleteByCode(ctx context.Context, code, subject string, now time.Time) error {
	const op = "shortener.repo.DeleteByCode"

	n, err := r.q.DeleteLinkByCode(ctx, db.DeleteLinkByCodeParams{
		ShortCode: code,
		Now:       timestamptz(now),
		Subject:   subject,
	})
	if err != nil {
		return mapRepoError(op, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, pgx.ErrNoRows)
	}
	return nil
}

func (r *repo) DeleteExpiredByCode(ctx context.Context, code string, now time.Time) (bool, error) {
	const op = "shortener.repo.DeleteExpiredByCode"

	n, err := r.q.DeleteExpiredLinkByCode(ctx, db.DeleteExpiredLinkByCodeParams{
		ShortCode: code,
		Now:       timestamptz(now),
	})
	if err != nil {
		return false, mapRepoError(op, err)
	}
	return n > 0, nil
}

func (r *repo) DeleteExpiredByOriginal(ctx context.Context, originalURL string, now time.Time) (bool, error) {
	const op = "shortener.repo.DeleteExpiredByOriginal"

	n, err := r.q.DeleteExpiredLinkByOriginalURL(ctx, db.DeleteExpiredLinkByOriginalURLParams{
		OriginalUrl: originalURL,
		Now:         timestamptz(now),
	})
	if err != nil {
		return false, mapRepoError(op, err)
	}
	return n > 0, nil
}

func (r *repo) IncrementUsage(ctx context.Context, code string, now time.Time) (Link, error) {
	const op = "shortener.repo.IncrementUsage"

	x, err := r.q.IncrementLinkUsage(ctx, db.IncrementLinkUsageParams{
		Now:       timestamptz(now),
		ShortCode: code,
	})
	return fromRow(op, x, err)
}

func (r *repo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "shortener.repo.DeleteExpired"

	n, err := r.q.DeleteExpiredLinks(ctx, timestamptz(now))
	if err != nil {
		return 0, mapRepoError(op, err)
	}
	return n, nil
}
