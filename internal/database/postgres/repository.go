// Package postgres implements the URL repository on top of PostgreSQL.
// Short code uniqueness is enforced by the urls_short_code_unique constraint,
// and access counting uses a single UPDATE ... RETURNING statement so
// concurrent resolutions never lose increments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/linkcut/linkcut/internal/database"
	"github.com/linkcut/linkcut/internal/models"
)

type urlRecord struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	AccessCount int64     `db:"access_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		AccessCount: r.AccessCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// wrapQueryError maps driver failures onto the shared sentinel errors.
func wrapQueryError(op string, err error) error {
	if isUnavailableError(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(database.ErrStoreUnavailable, err))
	}

	return fmt.Errorf("%s: query failed: %w", op, err)
}

// Create inserts a new url record with a zero access count. The unique
// constraint on short_code is the final authority on code uniqueness:
// a conflicting insert returns database.ErrShortCodeExists.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, wrapQueryError(op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode retrieves a url record by its short code without touching
// the access count.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, wrapQueryError(op, err)
	}

	return rec.ToURL(), nil
}

// GetByOriginalURL retrieves the canonical record for an original URL.
// When duplicate records exist for one URL the oldest wins.
func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE original_url = $1
		ORDER BY created_at, id
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, wrapQueryError(op, err)
	}

	return rec.ToURL(), nil
}

// IncrementAccessCount atomically bumps the access count for a short code and
// returns the record as it stands after the increment.
func (r *URLRepository) IncrementAccessCount(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.IncrementAccessCount"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET access_count = access_count + 1,
			updated_at = now()
		WHERE short_code = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, wrapQueryError(op, err)
	}

	return rec.ToURL(), nil
}

// GetPage returns up to limit records ordered by creation time, newest first,
// skipping offset records. Windows past the end yield an empty slice.
func (r *URLRepository) GetPage(ctx context.Context, limit, offset int64) ([]*models.URL, error) {
	const op = "database.postgres.URLRepository.GetPage"

	var recs []urlRecord
	query := `SELECT * FROM urls
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	err := r.db.SelectContext(ctx, &recs, query, limit, offset)
	if err != nil {
		return nil, wrapQueryError(op, err)
	}

	urls := make([]*models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, recs[i].ToURL())
	}

	return urls, nil
}

// Count returns the total number of url records.
func (r *URLRepository) Count(ctx context.Context) (int64, error) {
	const op = "database.postgres.URLRepository.Count"

	var count int64
	query := `SELECT count(*) FROM urls`

	err := r.db.GetContext(ctx, &count, query)
	if err != nil {
		return 0, wrapQueryError(op, err)
	}

	return count, nil
}
