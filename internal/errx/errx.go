// Package errx carries an operation name and a failure kind through every
// layer of the link service. Transports map the kind to a status code; the
// store, cache and service layers only ever choose a kind.
package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of where it happened.
type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	Conflict
	Invalid
	Unauthorized
	Forbidden
	Unavailable
	Exhausted // bounded retry loop gave up
	Internal
)

// Error is a failure observed by Op. Err is the cause, which may itself be an
// *Error from a lower layer.
type Error struct {
	Op   string // "pkg.layer.Method"
	Kind Kind
	Err  error
}

// E wraps err as an *Error. It returns nil for a nil err so store results can
// be passed through without a separate check.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

var kindNames = [...]string{
	Unknown:      "Unknown",
	NotFound:     "NotFound",
	Conflict:     "Conflict",
	Invalid:      "Invalid",
	Unauthorized: "Unauthorized",
	Forbidden:    "Forbidden",
	Unavailable:  "Unavailable",
	Exhausted:    "Exhausted",
	Internal:     "Internal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Retryable reports whether the same request may succeed later. HTTP
// responses for these kinds carry Retry-After.
func (k Kind) Retryable() bool {
	return k == Unavailable || k == Exhausted
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// OpOf returns the op of the outermost *Error in err's chain.
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
