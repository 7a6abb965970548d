// Package memory implements the URL repository in process memory. It is the
// reference implementation of the storage contract: a mutex stands in for the
// unique constraint and atomic increment a real database provides. Suitable
// for development and tests, not for durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linkcut/linkcut/internal/database"
	"github.com/linkcut/linkcut/internal/models"
)

type URLRepository struct {
	mu     sync.RWMutex
	nextID int64
	byCode map[string]*models.URL
}

func NewURLRepository() *URLRepository {
	return &URLRepository{
		nextID: 1,
		byCode: make(map[string]*models.URL),
	}
}

func cloneURL(url *models.URL) *models.URL {
	clone := *url
	return &clone
}

// Create inserts a new url record, rejecting short codes already in use.
// The whole check-and-insert runs under one lock, mirroring the unique
// constraint of the Postgres backend.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.memory.URLRepository.Create"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[shortCode]; exists {
		return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
	}

	now := time.Now()
	url := &models.URL{
		ID:          r.nextID,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.nextID++
	r.byCode[shortCode] = url

	return cloneURL(url), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.memory.URLRepository.GetByShortCode"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, exists := r.byCode[shortCode]
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return cloneURL(url), nil
}

// GetByOriginalURL returns the canonical record for an original URL. When
// duplicates exist the oldest record wins.
func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.memory.URLRepository.GetByOriginalURL"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.URL
	for _, url := range r.byCode {
		if url.OriginalURL != originalURL {
			continue
		}
		if found == nil || url.ID < found.ID {
			found = url
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return cloneURL(found), nil
}

// IncrementAccessCount bumps the access count under the write lock and
// returns the record as it stands after the increment.
func (r *URLRepository) IncrementAccessCount(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.memory.URLRepository.IncrementAccessCount"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	url, exists := r.byCode[shortCode]
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	url.AccessCount++
	url.UpdatedAt = time.Now()

	return cloneURL(url), nil
}

// GetPage returns up to limit records ordered by creation time, newest first,
// skipping offset records.
func (r *URLRepository) GetPage(ctx context.Context, limit, offset int64) ([]*models.URL, error) {
	const op = "database.memory.URLRepository.GetPage"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.URL, 0, len(r.byCode))
	for _, url := range r.byCode {
		all = append(all, url)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= int64(len(all)) {
		return []*models.URL{}, nil
	}

	end := offset + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}

	page := make([]*models.URL, 0, end-offset)
	for _, url := range all[offset:end] {
		page = append(page, cloneURL(url))
	}

	return page, nil
}

func (r *URLRepository) Count(ctx context.Context) (int64, error) {
	const op = "database.memory.URLRepository.Count"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.byCode)), nil
}
