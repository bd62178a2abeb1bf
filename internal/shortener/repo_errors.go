package shortener

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	shortCodeConstraint   = "links_short_code_unique"
	originalURLConstraint = "links_original_url_unique"
)

// uniqueViolationCause maps a unique violation to the domain cause it represents.
// It returns nil for anything else.
func uniqueViolationCause(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case shortCodeConstraint:
		return ErrCodeTaken
	case originalURLConstraint:
		return ErrOriginalTaken
	default:
		return nil
	}
}
