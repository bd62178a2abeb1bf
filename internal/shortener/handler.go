package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/httpx"
	"github.com/sundayezeilo/shortlink/internal/identity"
	"github.com/sundayezeilo/shortlink/sluggen"
)

// ShortenBody is the request for POST /links/shorten. The same fields are
// accepted as query parameters when the body is empty.
type ShortenBody struct {
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"` // RFC 3339
}

// ShortenResponse is returned for a created link.
type ShortenResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

// RewriteBody is the request for PUT /links/{code}.
type RewriteBody struct {
	NewCode string `json:"new_code"`
}

// CodeResponse carries a single short code.
type CodeResponse struct {
	ShortCode string `json:"short_code"`
}

// SearchResult is one element of the GET /links/search response.
type SearchResult struct {
	OriginalURL   string    `json:"original_url"`
	ShortCode     string    `json:"short_code"`
	LastUsedAt    time.Time `json:"last_used_at"`
	IsCustomAlias bool      `json:"is_custom_alias"`
}

// retryAfterSeconds is advertised on responses for transient failures.
const retryAfterSeconds = "1"

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // e.g. "https://short.ly"; short URLs are BaseURL + "/links/" + code
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// Shorten handles POST /links/shorten.
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	body, err := decodeShorten(w, r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	expiresAt, err := parseExpiry(body.ExpiresAt)
	if err != nil {
		h.writeServiceError(ctx, logger, w, err)
		return
	}

	link, err := h.service.Shorten(ctx, ShortenRequest{
		OriginalURL: body.OriginalURL,
		CustomAlias: body.CustomAlias,
		ExpiresAt:   expiresAt,
		Subject:     identity.SubjectFrom(ctx),
	})
	if err != nil {
		h.writeServiceError(ctx, logger, w, err)
		return
	}

	logger.InfoContext(ctx, "link created",
		"short_code", link.ShortCode,
		"custom_alias", link.IsCustomAlias,
		"expires", link.ExpiresAt != nil,
	)

	httpx.WriteJSON(w, http.StatusOK, ShortenResponse{
		ShortCode: link.ShortCode,
		ShortURL:  h.shortURL(link.ShortCode),
	})
}

// Resolve handles GET /links/{code} by redirecting to the original URL.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	if !plausibleCode(code) {
		logger.InfoContext(ctx, "malformed short code", "short_code", code)
		httpx.WriteKindError(w, errx.NotFound, "short link doesn't exist", nil)
		return
	}

	originalURL, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.writeServiceError(ctx, logger.With("short_code", code), w, err)
		return
	}

	logger.DebugContext(ctx, "short code resolved", "short_code", code)
	http.Redirect(w, r, originalURL, http.StatusTemporaryRedirect)
}

// Rewrite handles PUT /links/{code}.
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	body, err := httpx.DecodeJSON[RewriteBody](w, r)
	if errors.Is(err, httpx.ErrEmptyBody) {
		body, err = RewriteBody{NewCode: r.URL.Query().Get("new_code")}, nil
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	oldCode := r.PathValue("code")
	link, err := h.service.RewriteCode(ctx, RewriteRequest{
		OldCode: oldCode,
		NewCode: body.NewCode,
		Subject: identity.SubjectFrom(ctx),
	})
	if err != nil {
		h.writeServiceError(ctx, logger.With("short_code", oldCode), w, err)
		return
	}

	logger.InfoContext(ctx, "short code rewritten",
		"old_code", oldCode,
		"new_code", link.ShortCode,
	)
	httpx.WriteJSON(w, http.StatusOK, CodeResponse{ShortCode: link.ShortCode})
}

// Delete handles DELETE /links/{code}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	if err := h.service.Delete(ctx, code, identity.SubjectFrom(ctx)); err != nil {
		h.writeServiceError(ctx, logger.With("short_code", code), w, err)
		return
	}

	logger.InfoContext(ctx, "link deleted", "short_code", code)
	httpx.WriteNoContent(w)
}

// Stats handles GET /links/{code}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.PathValue("code")
	link, err := h.service.Stats(ctx, code)
	if err != nil {
		h.writeServiceError(ctx, h.requestLogger(r).With("short_code", code), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, link.Stats())
}

// Search handles GET /links/search?original_url=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	links, err := h.service.Search(ctx, r.URL.Query().Get("original_url"))
	if err != nil {
		h.writeServiceError(ctx, h.requestLogger(r), w, err)
		return
	}

	results := make([]SearchResult, 0, len(links))
	for _, l := range links {
		results = append(results, SearchResult{
			OriginalURL:   l.OriginalURL,
			ShortCode:     l.ShortCode,
			LastUsedAt:    l.LastUsedAt,
			IsCustomAlias: l.IsCustomAlias,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, results)
}

// writeServiceError maps a service error to its response. Client-side outcomes
// are logged at Warn, the rest at Error.
func (h *Handler) writeServiceError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)
	attrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"operation", errx.OpOf(err),
	}

	if kind.Retryable() {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	var dup *DuplicateOriginalError
	switch {
	case errors.As(err, &dup):
		logger.WarnContext(ctx, "original url already shortened", attrs...)
		var details map[string]string
		if dup.ExistingCode != "" {
			details = map[string]string{
				"short_code": dup.ExistingCode,
				"short_url":  h.shortURL(dup.ExistingCode),
			}
		}
		httpx.WriteKindError(w, errx.Conflict, "original url already shortened", details)

	case errors.Is(err, ErrAliasTaken):
		logger.WarnContext(ctx, "alias taken", attrs...)
		httpx.WriteKindError(w, errx.Conflict, "this code is already taken",
			map[string]string{"hint": "choose a different code or let one be generated"})

	case kind == errx.NotFound:
		logger.InfoContext(ctx, "link not found", attrs...)
		httpx.WriteKindError(w, kind, "short link doesn't exist", nil)

	case kind == errx.Invalid:
		logger.WarnContext(ctx, "invalid request", attrs...)
		httpx.WriteKindError(w, kind, validationMessage(err), nil)

	case kind == errx.Unauthorized:
		logger.WarnContext(ctx, "unauthenticated modification", attrs...)
		w.Header().Set("WWW-Authenticate", `Bearer realm="shortlink"`)
		httpx.WriteKindError(w, kind, "authentication required", nil)

	case kind == errx.Forbidden:
		logger.WarnContext(ctx, "modification by non-owner", attrs...)
		httpx.WriteKindError(w, kind, "this link belongs to another user", nil)

	case kind == errx.Exhausted:
		logger.ErrorContext(ctx, "short code space exhausted", attrs...)
		httpx.WriteKindError(w, kind, "unable to allocate a short code, please try again", nil)

	case kind == errx.Unavailable:
		logger.ErrorContext(ctx, "service unavailable", attrs...)
		httpx.WriteKindError(w, kind, "service temporarily unavailable, please try again", nil)

	default:
		logger.ErrorContext(ctx, "unexpected error", attrs...)
		httpx.WriteKindError(w, errx.Internal, "an unexpected error occurred", nil)
	}
}

func (h *Handler) shortURL(code string) string {
	return fmt.Sprintf("%s/links/%s", h.baseURL, code)
}

// decodeShorten reads the JSON body, falling back to query parameters when the
// body is empty.
func decodeShorten(w http.ResponseWriter, r *http.Request) (ShortenBody, error) {
	body, err := httpx.DecodeJSON[ShortenBody](w, r)
	if !errors.Is(err, httpx.ErrEmptyBody) {
		return body, err
	}
	return shortenFromQuery(r.URL.Query()), nil
}

func shortenFromQuery(q url.Values) ShortenBody {
	return ShortenBody{
		OriginalURL: q.Get("original_url"),
		CustomAlias: q.Get("custom_alias"),
		ExpiresAt:   q.Get("expires_at"),
	}
}

// parseExpiry parses an optional RFC 3339 expiry. A malformed value is
// reported as Invalid, like any other bad field.
func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errx.E("shortener.handler.Shorten", errx.Invalid,
			errors.New("expires_at must be an RFC 3339 timestamp"))
	}
	return &t, nil
}

// validationMessage returns the innermost validation message, which is safe to
// show to clients.
func validationMessage(err error) string {
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return "invalid input"
}

// plausibleCode is a cheap check that lets malformed codes skip the service.
func plausibleCode(code string) bool {
	return len(code) <= MaxCodeLength && sluggen.IsBase62(code)
}
