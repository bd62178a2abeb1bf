package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (1MB).
	MaxRequestBodySize = 1 << 20
)

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
// Handlers that also accept query parameters treat it as "use the query".
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes a single JSON object from the request body, rejecting
// unknown fields and bodies larger than MaxRequestBodySize.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T

	body := http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	defer func() {
		_ = body.Close()
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, describeDecodeError(err)
	}
	if dec.More() {
		var zero T
		return zero, errors.New("request body contains multiple JSON objects")
	}
	return v, nil
}

func describeDecodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("malformed JSON: unexpected end of body")
	case errors.As(err, &typeErr):
		return fmt.Errorf("invalid value for field %q", typeErr.Field)
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("request body too large (max %d bytes)", MaxRequestBodySize)
	default:
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
}
