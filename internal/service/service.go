// Package service holds the core URL shortening logic: idempotent creation
// with a bounded uniqueness-retry loop, counting resolution, read-only stats
// and listing. All correctness under concurrency is delegated to the
// repository's atomicity guarantees; the service itself keeps no state
// between calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/linkcut/linkcut/internal/database"
	"github.com/linkcut/linkcut/internal/models"
	"github.com/linkcut/linkcut/internal/shortcode"
	"github.com/linkcut/linkcut/internal/telemetry"
)

var (
	// ErrInvalidURL is returned when the submitted URL is empty or is not an
	// http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidPagination is returned when page or limit is not a positive
	// integer.
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	// ErrCodeSpaceExhausted is returned when the maximum number of attempts to
	// find an unused short code is exceeded. It indicates pressure on the code
	// space and is worth alerting on.
	ErrCodeSpaceExhausted = errors.New("exhausted attempts to generate unique short code")
)

// maxShortenAttempts bounds the uniqueness-retry loop so a saturated code
// space turns into a reportable failure instead of an infinite loop.
const maxShortenAttempts = 10

var urlPattern = regexp.MustCompile(`^https?://.+`)

// URLRepository defines the storage operations the service depends on.
// Implementations must enforce short code uniqueness on Create and provide an
// atomic increment-and-fetch so concurrent resolutions never lose updates.
type URLRepository interface {
	// Create inserts a new shortened URL with a zero access count.
	// Returns database.ErrShortCodeExists when the code is already taken.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without mutating it.
	// Returns database.ErrURLNotFound when no record has that code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves the canonical record for an original URL.
	// Returns database.ErrURLNotFound when the URL has not been shortened.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// IncrementAccessCount atomically increments the access count for a short
	// code and returns the record as it stands after the increment.
	IncrementAccessCount(ctx context.Context, shortCode string) (*models.URL, error)

	// GetPage returns up to limit records ordered by creation time, newest
	// first, skipping offset records.
	GetPage(ctx context.Context, limit, offset int64) ([]*models.URL, error)

	// Count returns the total number of records, independent of pagination.
	Count(ctx context.Context) (int64, error)
}

// URLService provides methods to manage URL shortening operations.
type URLService struct {
	repo URLRepository
	gen  shortcode.Generator
	sink telemetry.Sink
}

// NewURLService creates a new URLService. A nil sink disables telemetry.
func NewURLService(repo URLRepository, gen shortcode.Generator, sink telemetry.Sink) *URLService {
	if sink == nil {
		sink = telemetry.Nop{}
	}

	return &URLService{
		repo: repo,
		gen:  gen,
		sink: sink,
	}
}

func (s *URLService) recordSuccess(name string, url *models.URL) {
	event := telemetry.NewEvent(name)
	event.ShortCode = url.ShortCode
	event.OriginalURL = url.OriginalURL
	s.sink.Record(event)
}

func (s *URLService) recordFailure(op string, err error) {
	event := telemetry.NewEvent(telemetry.EventOpFailed)
	event.Error = fmt.Sprintf("%s: %v", op, err)
	s.sink.Record(event)
}

// ShortenURL returns the record for originalURL, creating it if necessary.
// Creation is idempotent: an already-shortened URL yields the existing record
// with no new code minted. For new URLs it runs a bounded retry loop, letting
// the repository's uniqueness guarantee arbitrate races: the pre-check via
// GetByShortCode only keeps the common-case retry count near zero, while a
// conflicting concurrent insert surfaces as database.ErrShortCodeExists and
// triggers another attempt.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	if originalURL == "" || !urlPattern.MatchString(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	existing, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err == nil {
		s.recordSuccess(telemetry.EventURLShortened, existing)
		return existing, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		s.recordFailure(op, err)
		return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	for i := 0; i < maxShortenAttempts; i++ {
		code, err := s.gen.Generate()
		if err != nil {
			s.recordFailure(op, err)
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		_, err = s.repo.GetByShortCode(ctx, code)
		if err == nil {
			continue
		}
		if !errors.Is(err, database.ErrURLNotFound) {
			s.recordFailure(op, err)
			return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, code, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			s.recordFailure(op, err)
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.recordSuccess(telemetry.EventURLShortened, url)
		return url, nil
	}

	s.recordFailure(op, ErrCodeSpaceExhausted)
	return nil, fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// ResolveShortCode retrieves the original URL associated with the provided
// short code, incrementing its access count. The returned record reflects the
// state after the increment.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.repo.IncrementAccessCount(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, database.ErrURLNotFound) {
			s.recordFailure(op, err)
		}
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	s.recordSuccess(telemetry.EventURLResolved, url)
	return url, nil
}

// GetURLStats retrieves the record for the provided short code without
// mutating its access count.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, database.ErrURLNotFound) {
			s.recordFailure(op, err)
		}
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	s.recordSuccess(telemetry.EventURLLookedUp, url)
	return url, nil
}

// ListURLs returns the page-th window of limit records ordered by creation
// time, newest first, along with the total record count. Windows past the end
// yield an empty page with an accurate total.
func (s *URLService) ListURLs(ctx context.Context, page, limit int64) (*models.URLPage, error) {
	const op = "service.URLService.ListURLs"

	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPagination)
	}

	offset := (page - 1) * limit

	urls, err := s.repo.GetPage(ctx, limit, offset)
	if err != nil {
		s.recordFailure(op, err)
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		s.recordFailure(op, err)
		return nil, fmt.Errorf("%s: failed to count urls: %w", op, err)
	}

	s.sink.Record(telemetry.NewEvent(telemetry.EventURLsListed))

	return &models.URLPage{
		URLs:       urls,
		TotalCount: count,
	}, nil
}
