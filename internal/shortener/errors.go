package shortener

import (
	"errors"
	"fmt"
)

var (
	// ErrCodeTaken is returned by a Repository when the short code unique constraint rejects a write.
	ErrCodeTaken = errors.New("short code already in use")

	// ErrOriginalTaken is returned by a Repository when the original URL unique constraint rejects a write.
	ErrOriginalTaken = errors.New("original url already shortened")

	// ErrAliasTaken reports that a caller-chosen code belongs to a live link.
	ErrAliasTaken = errors.New("alias already taken")

	// ErrGenerationExhausted reports that every generated candidate collided.
	ErrGenerationExhausted = errors.New("could not allocate a unique short code")

	// ErrLinkNotFound is the single not-found cause for missing and expired links.
	ErrLinkNotFound = errors.New("link not found")

	// ErrNotOwner reports a modification attempt by someone other than the owner.
	ErrNotOwner = errors.New("link belongs to another owner")

	// ErrAuthRequired reports a modification attempt without an identity.
	ErrAuthRequired = errors.New("authentication required")
)

// DuplicateOriginalError reports that the original URL already has a live short code.
type DuplicateOriginalError struct {
	ExistingCode string
}

func (e *DuplicateOriginalError) Error() string {
	if e.ExistingCode == "" {
		return ErrOriginalTaken.Error()
	}
	return fmt.Sprintf("%s as %q", ErrOriginalTaken, e.ExistingCode)
}

// Is makes errors.Is(err, ErrOriginalTaken) hold for a DuplicateOriginalError.
func (e *DuplicateOriginalError) Is(target error) bool {
	return target == ErrOriginalTaken
}
