package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/sluggen"
)

const (
	DefaultCodeLength    = sluggen.DefaultLength
	MinCodeLength        = 3
	MaxCodeLength        = 64
	MaxURLLength         = 2048
	DefaultMaxRetries    = 10
	DefaultWarmThreshold = 5
	DefaultStoreTimeout  = 2 * time.Second
)

// ShortenRequest represents the parameters for shortening a URL.
type ShortenRequest struct {
	OriginalURL string
	CustomAlias string     // optional; a code is generated when empty
	ExpiresAt   *time.Time // optional; truncated to the minute
	Subject     string     // optional owner
}

// RewriteRequest represents the parameters for moving a link to a new code.
type RewriteRequest struct {
	OldCode string
	NewCode string
	Subject string
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Shorten(ctx context.Context, req ShortenRequest) (Link, error)
	RewriteCode(ctx context.Context, req RewriteRequest) (Link, error)
	Delete(ctx context.Context, code, subject string) error
	Resolve(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string) (Link, error)
	Search(ctx context.Context, originalURL string) ([]Link, error)
}

// service implements the Service interface.
type service struct {
	repo          Repository
	cache         Cache
	codeGenerator sluggen.Generator
	codeLength    int
	maxRetries    int
	warmThreshold int64
	storeTimeout  time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Cache         Cache // nil disables redirect caching
	CodeGenerator sluggen.Generator
	CodeLength    int
	MaxRetries    int   // generated-code attempts before giving up (default: 10)
	WarmThreshold int64 // usage count at which a link is cached (default: 5)
	StoreTimeout  time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	var cache Cache = nopCache{}
	if config.Cache != nil {
		cache = config.Cache
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = sluggen.NewBase62()
	}

	codeLength := config.CodeLength
	if codeLength < MinCodeLength || codeLength > MaxCodeLength {
		codeLength = DefaultCodeLength
	}

	retries := config.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	threshold := config.WarmThreshold
	if threshold < 2 {
		threshold = DefaultWarmThreshold
	}

	timeout := config.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &service{
		repo:          repo,
		cache:         cache,
		codeGenerator: codeGen,
		codeLength:    codeLength,
		maxRetries:    retries,
		warmThreshold: threshold,
		storeTimeout:  timeout,
		logger:        logger,
		now:           func() time.Time { return clock().UTC() },
	}
}

// bounded runs a single store call under the store timeout.
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// Shorten creates a link for req.OriginalURL, using the custom alias when given.
func (s *service) Shorten(ctx context.Context, req ShortenRequest) (Link, error) {
	const op = "shortener.service.Shorten"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if req.CustomAlias != "" {
		if err := validateCode(req.CustomAlias); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
	}

	now := s.now()

	// A past expiry is stored as given; the link is simply never resolvable.
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC().Truncate(time.Minute)
		expiresAt = &t
	}

	existing, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByOriginal(ctx, req.OriginalURL)
	})
	switch {
	case err == nil && !existing.ExpiredAt(now):
		return Link{}, errx.E(op, errx.Conflict, &DuplicateOriginalError{ExistingCode: existing.ShortCode})
	case err == nil:
		// An expired mapping for the same URL blocks the insert until reclaimed.
		if _, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (bool, error) {
			return s.repo.DeleteExpiredByOriginal(ctx, req.OriginalURL, now)
		}); err != nil {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	case !errx.Is(err, errx.NotFound):
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	candidate := Link{
		OwnerID:     req.Subject,
		OriginalURL: req.OriginalURL,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   expiresAt,
		UsageCount:  1,
	}

	if req.CustomAlias != "" {
		candidate.ShortCode = req.CustomAlias
		candidate.IsCustomAlias = true
		return s.insertAlias(ctx, op, candidate, now)
	}

	for attempt := range s.maxRetries {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		if _, reserved := reservedCodes[code]; reserved {
			continue
		}
		candidate.ShortCode = code

		created, err := s.insert(ctx, candidate)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return Link{}, s.insertFailure(ctx, op, req.OriginalURL, err)
		}
		s.logger.DebugContext(ctx, "generated code collided",
			"attempt", attempt+1,
			"short_code", code,
		)
	}

	return Link{}, errx.E(op, errx.Exhausted,
		fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, s.maxRetries))
}

func (s *service) insert(ctx context.Context, link Link) (Link, error) {
	return bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.InsertIfAbsent(ctx, link)
	})
}

// insertAlias writes a caller-chosen code, reclaiming it once if an expired
// link still holds it.
func (s *service) insertAlias(ctx context.Context, op string, link Link, now time.Time) (Link, error) {
	created, err := s.insert(ctx, link)
	if errors.Is(err, ErrCodeTaken) && s.reclaimCode(ctx, link.ShortCode, now) {
		created, err = s.insert(ctx, link)
	}
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, ErrCodeTaken):
		return Link{}, errx.E(op, errx.Conflict, ErrAliasTaken)
	default:
		return Link{}, s.insertFailure(ctx, op, link.OriginalURL, err)
	}
}

// insertFailure reports the existing code when a concurrent writer won the
// original URL.
func (s *service) insertFailure(ctx context.Context, op, originalURL string, err error) error {
	if !errors.Is(err, ErrOriginalTaken) {
		return errx.E(op, errx.KindOf(err), err)
	}

	winner, findErr := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByOriginal(ctx, originalURL)
	})
	if findErr != nil {
		return errx.E(op, errx.Conflict, &DuplicateOriginalError{})
	}
	return errx.E(op, errx.Conflict, &DuplicateOriginalError{ExistingCode: winner.ShortCode})
}

// reclaimCode deletes the link holding code if it has expired and reports
// whether anything was removed.
func (s *service) reclaimCode(ctx context.Context, code string, now time.Time) bool {
	removed, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (bool, error) {
		return s.repo.DeleteExpiredByCode(ctx, code, now)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reclaim expired code",
			"short_code", code,
			"error", err.Error(),
		)
		return false
	}
	return removed
}

// RewriteCode moves a live link to a new caller-chosen code.
func (s *service) RewriteCode(ctx context.Context, req RewriteRequest) (Link, error) {
	const op = "shortener.service.RewriteCode"

	if req.Subject == "" {
		return Link{}, errx.E(op, errx.Unauthorized, ErrAuthRequired)
	}
	if req.OldCode == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}
	if err := validateCode(req.NewCode); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if req.NewCode == req.OldCode {
		return Link{}, errx.E(op, errx.Invalid, errors.New("new code must differ from the current code"))
	}

	now := s.now()
	update := func(ctx context.Context) (Link, error) {
		return s.repo.UpdateCode(ctx, req.OldCode, req.NewCode, req.Subject, now)
	}

	updated, err := bounded(ctx, s.storeTimeout, update)
	if errors.Is(err, ErrCodeTaken) && s.reclaimCode(ctx, req.NewCode, now) {
		updated, err = bounded(ctx, s.storeTimeout, update)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrCodeTaken):
		return Link{}, errx.E(op, errx.Conflict, ErrAliasTaken)
	case errx.Is(err, errx.NotFound):
		return Link{}, s.explainMiss(ctx, op, req.OldCode, req.Subject, now)
	default:
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	s.invalidate(ctx, req.OldCode)
	return updated, nil
}

// Delete removes a live link and drops its cached redirect.
func (s *service) Delete(ctx context.Context, code, subject string) error {
	const op = "shortener.service.Delete"

	if subject == "" {
		return errx.E(op, errx.Unauthorized, ErrAuthRequired)
	}
	if code == "" {
		return errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	now := s.now()
	_, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.DeleteByCode(ctx, code, subject, now)
	})
	switch {
	case err == nil:
	case errx.Is(err, errx.NotFound):
		return s.explainMiss(ctx, op, code, subject, now)
	default:
		return errx.E(op, errx.KindOf(err), err)
	}

	s.invalidate(ctx, code)
	return nil
}

// explainMiss turns a conditional write that matched nothing into NotFound or
// Forbidden.
func (s *service) explainMiss(ctx context.Context, op, code, subject string, now time.Time) error {
	link, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByCode(ctx, code)
	})
	switch {
	case err == nil && !link.ExpiredAt(now) && !link.OwnedBy(subject):
		return errx.E(op, errx.Forbidden, ErrNotOwner)
	case err == nil, errx.Is(err, errx.NotFound):
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	default:
		return errx.E(op, errx.KindOf(err), err)
	}
}

// invalidate drops a cached redirect. It runs even if the request context is
// already canceled; failures are logged.
func (s *service) invalidate(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	if err := s.cache.Invalidate(ctx, code); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached redirect",
			"short_code", code,
			"error", err.Error(),
		)
	}
}

// Stats returns the live link stored under code.
func (s *service) Stats(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Stats"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	link, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByCode(ctx, code)
	})
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if link.ExpiredAt(s.now()) {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return link, nil
}

// Search returns the live links for an original URL. Since an original URL
// maps to at most one live link the result has length one.
func (s *service) Search(ctx context.Context, originalURL string) ([]Link, error) {
	const op = "shortener.service.Search"

	if originalURL == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("original_url cannot be empty"))
	}

	link, err := bounded(ctx, s.storeTimeout, func(ctx context.Context) (Link, error) {
		return s.repo.FindByOriginal(ctx, originalURL)
	})
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	if link.ExpiredAt(s.now()) {
		return nil, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return []Link{link}, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

// reservedCodes are literal GET routes under /links/ that win over
// GET /links/{code}, so a link stored under one could never redirect.
var reservedCodes = map[string]struct{}{
	"search": {},
}

// validateCode applies the policy for caller-chosen codes.
func validateCode(code string) error {
	if code == "" {
		return errors.New("code cannot be empty")
	}
	if len(code) < MinCodeLength {
		return errors.New("code too short (minimum 3 characters)")
	}
	if len(code) > MaxCodeLength {
		return errors.New("code too long (maximum 64 characters)")
	}
	if !sluggen.IsBase62(code) {
		return errors.New("code contains invalid characters (only ASCII letters and digits allowed)")
	}
	if _, ok := reservedCodes[code]; ok {
		return fmt.Errorf("code %q is reserved", code)
	}
	return nil
}
