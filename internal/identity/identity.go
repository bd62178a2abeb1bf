// Package identity resolves request credentials into subject ids.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// Anonymous is the subject of requests that carry no credential.
const Anonymous = ""

// ErrUnknownCredential is returned for a credential that maps to no subject.
var ErrUnknownCredential = errors.New("unknown credential")

// Provider resolves a credential to a subject id. An empty credential
// resolves to Anonymous.
type Provider interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

type staticEntry struct {
	token   []byte
	subject string
}

// StaticProvider resolves bearer tokens from a fixed token-to-subject table.
type StaticProvider struct {
	entries []staticEntry
}

// NewStatic builds a StaticProvider from tokens (token -> subject).
func NewStatic(tokens map[string]string) *StaticProvider {
	entries := make([]staticEntry, 0, len(tokens))
	for token, subject := range tokens {
		entries = append(entries, staticEntry{token: []byte(token), subject: subject})
	}
	return &StaticProvider{entries: entries}
}

// Resolve compares the credential against every known token in constant time.
func (p *StaticProvider) Resolve(_ context.Context, credential string) (string, error) {
	const op = "identity.static.Resolve"

	if credential == "" {
		return Anonymous, nil
	}

	given := []byte(credential)
	subject := ""
	for _, e := range p.entries {
		if subtle.ConstantTimeCompare(given, e.token) == 1 {
			subject = e.subject
		}
	}
	if subject == "" {
		return Anonymous, errx.E(op, errx.Unauthorized, ErrUnknownCredential)
	}
	return subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type contextKey struct{}

// WithSubject returns a copy of ctx carrying subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

// SubjectFrom returns the subject stored in ctx, or Anonymous.
func SubjectFrom(ctx context.Context) string {
	if s, ok := ctx.Value(contextKey{}).(string); ok {
		return s
	}
	return Anonymous
}
