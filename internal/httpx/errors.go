package httpx

import (
	"net/http"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusUnprocessableEntity
	case errx.Unauthorized:
		return http.StatusUnauthorized
	case errx.Forbidden:
		return http.StatusForbidden
	case errx.Unavailable, errx.Exhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to the error code of a JSON error body.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Conflict:
		return "conflict"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unauthorized:
		return "unauthorized"
	case errx.Forbidden:
		return "forbidden"
	case errx.Unavailable:
		return "unavailable"
	case errx.Exhausted:
		return "code_space_exhausted"
	default:
		return "internal_error"
	}
}

// WriteKindError writes the error body for kind. The message is sent to the
// client as-is and must not carry internal detail.
func WriteKindError(w http.ResponseWriter, kind errx.Kind, message string, details any) {
	WriteError(w, ErrorKindToStatus(kind), ErrorKindToCode(kind), message, details)
}
