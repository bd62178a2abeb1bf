package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/httpx"
	"github.com/sundayezeilo/shortlink/internal/identity"
)

/***************
 * Mocks
 ***************/

// mockService implements Service for handler tests.
type mockService struct {
	shortenFunc func(ctx context.Context, req ShortenRequest) (Link, error)
	rewriteFunc func(ctx context.Context, req RewriteRequest) (Link, error)
	deleteFunc  func(ctx context.Context, code, subject string) error
	resolveFunc func(ctx context.Context, code string) (string, error)
	statsFunc   func(ctx context.Context, code string) (Link, error)
	searchFunc  func(ctx context.Context, originalURL string) ([]Link, error)
}

func (m *mockService) Shorten(ctx context.Context, req ShortenRequest) (Link, error) {
	return m.shortenFunc(ctx, req)
}

func (m *mockService) RewriteCode(ctx context.Context, req RewriteRequest) (Link, error) {
	return m.rewriteFunc(ctx, req)
}

func (m *mockService) Delete(ctx context.Context, code, subject string) error {
	return m.deleteFunc(ctx, code, subject)
}

func (m *mockService) Resolve(ctx context.Context, code string) (string, error) {
	return m.resolveFunc(ctx, code)
}

func (m *mockService) Stats(ctx context.Context, code string) (Link, error) {
	return m.statsFunc(ctx, code)
}

func (m *mockService) Search(ctx context.Context, originalURL string) ([]Link, error) {
	return m.searchFunc(ctx, originalURL)
}

/***************
 * Helpers
 ***************/

func newTestMux(svc Service) *http.ServeMux {
	h := NewHandler(HandlerConfig{
		Service: svc,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		BaseURL: "https://sho.rt/",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /links/shorten", h.Shorten)
	mux.HandleFunc("GET /links/search", h.Search)
	mux.HandleFunc("GET /links/{code}", h.Resolve)
	mux.HandleFunc("PUT /links/{code}", h.Rewrite)
	mux.HandleFunc("DELETE /links/{code}", h.Delete)
	mux.HandleFunc("GET /links/{code}/stats", h.Stats)
	return mux
}

func serve(t *testing.T, svc Service, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	newTestMux(svc).ServeHTTP(rec, req)
	return rec
}

func asSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(identity.WithSubject(req.Context(), subject))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var body httpx.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (raw=%q)", err, rec.Body.String())
	}
	return body
}

/***************
 * Shorten
 ***************/

func TestHandlerShorten(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		var got ShortenRequest
		svc := &mockService{
			shortenFunc: func(_ context.Context, req ShortenRequest) (Link, error) {
				got = req
				return Link{ShortCode: "Xy12Ab"}, nil
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/links/shorten",
			strings.NewReader(`{"original_url":"https://example.com","custom_alias":"promo","expires_at":"2030-01-02T03:04:05Z"}`))

		rec := serve(t, svc, asSubject(req, "alice"))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body)
		}
		var resp ShortenResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ShortCode != "Xy12Ab" || resp.ShortURL != "https://sho.rt/links/Xy12Ab" {
			t.Errorf("response = %+v", resp)
		}
		if got.OriginalURL != "https://example.com" || got.CustomAlias != "promo" || got.Subject != "alice" {
			t.Errorf("request = %+v", got)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)) {
			t.Errorf("ExpiresAt = %v", got.ExpiresAt)
		}
	})

	t.Run("query parameters when body is empty", func(t *testing.T) {
		var got ShortenRequest
		svc := &mockService{
			shortenFunc: func(_ context.Context, req ShortenRequest) (Link, error) {
				got = req
				return Link{ShortCode: "abc123"}, nil
			},
		}
		req := httptest.NewRequest(http.MethodPost,
			"/links/shorten?original_url=https%3A%2F%2Fexample.com%2Fa%3Fb%3D1&expires_at=2030-01-02T03:04:05Z", nil)

		rec := serve(t, svc, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body)
		}
		if got.OriginalURL != "https://example.com/a?b=1" || got.ExpiresAt == nil {
			t.Errorf("request = %+v", got)
		}
		if got.Subject != identity.Anonymous {
			t.Errorf("Subject = %q, want anonymous", got.Subject)
		}
	})

	t.Run("malformed expiry is invalid input", func(t *testing.T) {
		tests := []struct {
			name string
			req  *http.Request
		}{
			{"query", httptest.NewRequest(http.MethodPost,
				"/links/shorten?original_url=https://example.com&expires_at=tomorrow", nil)},
			{"json body", httptest.NewRequest(http.MethodPost, "/links/shorten",
				strings.NewReader(`{"original_url":"https://example.com","expires_at":"2030-13-45"}`))},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := serve(t, &mockService{}, tt.req)

				if rec.Code != http.StatusUnprocessableEntity {
					t.Fatalf("status = %d, want 422", rec.Code)
				}
				body := decodeError(t, rec)
				if body.Error != "invalid_input" {
					t.Errorf("error = %q, want invalid_input", body.Error)
				}
				if !strings.Contains(body.Message, "RFC 3339") {
					t.Errorf("message = %q", body.Message)
				}
			})
		}
	})

	t.Run("past expiry is passed through", func(t *testing.T) {
		var got ShortenRequest
		svc := &mockService{
			shortenFunc: func(_ context.Context, req ShortenRequest) (Link, error) {
				got = req
				return Link{ShortCode: "abc123"}, nil
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/links/shorten",
			strings.NewReader(`{"original_url":"https://example.com","expires_at":"2001-01-01T00:00:00Z"}`))

		rec := serve(t, svc, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got.ExpiresAt == nil || got.ExpiresAt.Year() != 2001 {
			t.Errorf("ExpiresAt = %v", got.ExpiresAt)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/links/shorten", strings.NewReader(`{"original_url":`))

		rec := serve(t, &mockService{}, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if body := decodeError(t, rec); body.Error != "invalid_request" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("duplicate original reports existing link", func(t *testing.T) {
		svc := &mockService{
			shortenFunc: func(context.Context, ShortenRequest) (Link, error) {
				return Link{}, errx.E("shortener.service.Shorten", errx.Conflict, &DuplicateOriginalError{ExistingCode: "exist1"})
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/links/shorten", strings.NewReader(`{"original_url":"https://example.com"}`))

		rec := serve(t, svc, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var body struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Details["short_code"] != "exist1" || body.Details["short_url"] != "https://sho.rt/links/exist1" {
			t.Errorf("details = %v", body.Details)
		}
	})

	t.Run("validation message reaches client", func(t *testing.T) {
		svc := &mockService{
			shortenFunc: func(context.Context, ShortenRequest) (Link, error) {
				return Link{}, errx.E("shortener.service.Shorten", errx.Invalid, errors.New("url must include host"))
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/links/shorten", strings.NewReader(`{"original_url":"https://"}`))

		rec := serve(t, svc, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if body := decodeError(t, rec); body.Message != "url must include host" {
			t.Errorf("message = %q", body.Message)
		}
	})
}

/***************
 * Resolve
 ***************/

func TestHandlerResolve(t *testing.T) {
	t.Run("redirects", func(t *testing.T) {
		svc := &mockService{
			resolveFunc: func(_ context.Context, code string) (string, error) {
				if code != "abc123" {
					t.Errorf("code = %q", code)
				}
				return "https://example.com/landing", nil
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/abc123", nil))

		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("status = %d, want 307", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "https://example.com/landing" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("malformed code skips the service", func(t *testing.T) {
		svc := &mockService{
			resolveFunc: func(context.Context, string) (string, error) {
				t.Fatal("service must not be called")
				return "", nil
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/not-a-code", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := &mockService{
			resolveFunc: func(context.Context, string) (string, error) {
				return "", errx.E("shortener.service.Resolve", errx.NotFound, ErrLinkNotFound)
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/abc123", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if body := decodeError(t, rec); body.Message != "short link doesn't exist" {
			t.Errorf("message = %q", body.Message)
		}
	})

	t.Run("store unavailable", func(t *testing.T) {
		svc := &mockService{
			resolveFunc: func(context.Context, string) (string, error) {
				return "", errx.E("shortener.service.Resolve", errx.Unavailable, errors.New("dial tcp: connection refused"))
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/abc123", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if body := decodeError(t, rec); strings.Contains(body.Message, "dial tcp") {
			t.Errorf("internal detail leaked: %q", body.Message)
		}
	})
}

/***************
 * Rewrite / Delete
 ***************/

func TestHandlerRewrite(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		subject    string
		err        error
		wantStatus int
	}{
		{"json body", "/links/old111", `{"new_code":"new222"}`, "alice", nil, http.StatusOK},
		{"query parameter", "/links/old111?new_code=new222", "", "alice", nil, http.StatusOK},
		{"anonymous", "/links/old111", `{"new_code":"new222"}`, "", errx.E("op", errx.Unauthorized, ErrAuthRequired), http.StatusUnauthorized},
		{"not owner", "/links/old111", `{"new_code":"new222"}`, "bob", errx.E("op", errx.Forbidden, ErrNotOwner), http.StatusForbidden},
		{"alias taken", "/links/old111", `{"new_code":"new222"}`, "alice", errx.E("op", errx.Conflict, ErrAliasTaken), http.StatusConflict},
		{"unknown field", "/links/old111", `{"code":"new222"}`, "alice", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RewriteRequest
			svc := &mockService{
				rewriteFunc: func(_ context.Context, req RewriteRequest) (Link, error) {
					got = req
					if tt.err != nil {
						return Link{}, tt.err
					}
					return Link{ShortCode: req.NewCode}, nil
				},
			}
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := asSubject(httptest.NewRequest(http.MethodPut, tt.target, body), tt.subject)

			rec := serve(t, svc, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body=%s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus == http.StatusBadRequest {
				return
			}
			if got.OldCode != "old111" || got.NewCode != "new222" || got.Subject != tt.subject {
				t.Errorf("request = %+v", got)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.wantStatus == http.StatusOK {
				var resp CodeResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.ShortCode != "new222" {
					t.Errorf("response = %+v, %v", resp, err)
				}
			}
		})
	}
}

func TestHandlerDelete(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		svc := &mockService{
			deleteFunc: func(_ context.Context, code, subject string) error {
				if code != "abc123" || subject != "alice" {
					t.Errorf("Delete(%q, %q)", code, subject)
				}
				return nil
			},
		}
		req := asSubject(httptest.NewRequest(http.MethodDelete, "/links/abc123", nil), "alice")

		rec := serve(t, svc, req)

		if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
			t.Errorf("status = %d, body = %q, want empty 204", rec.Code, rec.Body)
		}
	})

	t.Run("missing link", func(t *testing.T) {
		svc := &mockService{
			deleteFunc: func(context.Context, string, string) error {
				return errx.E("shortener.service.Delete", errx.NotFound, ErrLinkNotFound)
			},
		}
		req := asSubject(httptest.NewRequest(http.MethodDelete, "/links/abc123", nil), "alice")

		if rec := serve(t, svc, req); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

/***************
 * Stats / Search
 ***************/

func TestHandlerStats(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockService{
		statsFunc: func(_ context.Context, code string) (Link, error) {
			return Link{
				ShortCode:   code,
				OriginalURL: "https://example.com",
				CreatedAt:   created,
				LastUsedAt:  created.Add(time.Hour),
				UsageCount:  12,
			}, nil
		},
	}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/abc123/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ShortCode != "abc123" || got.UsageCount != 12 || !got.CreatedAt.Equal(created) {
		t.Errorf("stats = %+v", got)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want omitted", got.ExpiresAt)
	}
}

func TestHandlerSearch(t *testing.T) {
	t.Run("returns results", func(t *testing.T) {
		used := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		svc := &mockService{
			searchFunc: func(_ context.Context, originalURL string) ([]Link, error) {
				return []Link{{OriginalURL: originalURL, ShortCode: "abc123", LastUsedAt: used, IsCustomAlias: true}}, nil
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/search?original_url=https%3A%2F%2Fexample.com", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got []SearchResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0].OriginalURL != "https://example.com" || !got[0].IsCustomAlias {
			t.Errorf("results = %+v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		svc := &mockService{
			searchFunc: func(context.Context, string) ([]Link, error) {
				return nil, errx.E("shortener.service.Search", errx.NotFound, ErrLinkNotFound)
			},
		}

		rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/links/search?original_url=https://nope.example", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

/***************
 * Error mapping
 ***************/

func TestHandlerWriteServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantCode       string
		wantRetryAfter string
	}{
		{"exhausted", errx.E("op", errx.Exhausted, ErrGenerationExhausted), http.StatusServiceUnavailable, "code_space_exhausted", "1"},
		{"unavailable", errx.E("op", errx.Unavailable, errors.New("x")), http.StatusServiceUnavailable, "unavailable", "1"},
		{"internal", errx.E("op", errx.Internal, errors.New("x")), http.StatusInternalServerError, "internal_error", ""},
		{"plain error", errors.New("x"), http.StatusInternalServerError, "internal_error", ""},
		{"forbidden", errx.E("op", errx.Forbidden, ErrNotOwner), http.StatusForbidden, "forbidden", ""},
		{"not found", errx.E("op", errx.NotFound, ErrLinkNotFound), http.StatusNotFound, "not_found", ""},
	}

	h := NewHandler(HandlerConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			h.writeServiceError(context.Background(), h.logger, rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryAfter)
			}
			if body := decodeError(t, rec); body.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestPlausibleCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"abc123", true},
		{"a", true},
		{"", false},
		{"has-dash", false},
		{strings.Repeat("a", MaxCodeLength+1), false},
	}
	for _, tt := range tests {
		if got := plausibleCode(tt.code); got != tt.want {
			t.Errorf("plausibleCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
