// Package sluggen generates short codes.
// Generators should be safe for concurrent use.
package sluggen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the length of generated short codes.
	DefaultLength = 6

	// maxUnbiased is the largest multiple of 62 that fits in a byte.
	// Bytes at or above it are rejected so every character is equally likely.
	maxUnbiased = 256 - (256 % len(base62Chars))
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator draws characters uniformly from the alphanumeric alphabet.
// It holds no mutable state and is safe for concurrent use.
type base62Generator struct {
	src io.Reader
}

// Option configures a base62 generator.
type Option func(*base62Generator)

// WithSource replaces the random source. The reader must be safe for
// concurrent use if the generator is shared.
func WithSource(r io.Reader) Option {
	return func(g *base62Generator) {
		if r != nil {
			g.src = r
		}
	}
}

// NewBase62 returns a new base62 code generator.
func NewBase62(opts ...Option) Generator {
	g := &base62Generator{src: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a random base62 string of the given length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, base62Chars[int(b)%len(base62Chars)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// IsBase62 reports whether s is non-empty and consists only of ASCII letters and digits.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
