package postgres

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/linkcut/linkcut/internal/database"
)

var errUnknown = errors.New("unknown error")

var columns = []string{"id", "short_code", "original_url", "access_count", "created_at", "updated_at"}

func setupURLRepository(t testing.TB) (*URLRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewURLRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestURLRepository_Create(t *testing.T) {
	t.Run("short code exists", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		url, err := repo.Create(context.TODO(), "code1", "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure maps to store unavailable", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com").
			WillReturnError(&net.OpError{Op: "dial", Err: errors.New("connection refused")})

		url, err := repo.Create(context.TODO(), "code1", "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrStoreUnavailable)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com").
			WillReturnError(errUnknown)

		url, err := repo.Create(context.TODO(), "code1", "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NotErrorIs(t, err, database.ErrStoreUnavailable)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(1, "code1", "https://example.com", 0, time.Time{}, time.Time{})

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com").
			WillReturnRows(rows)

		url, err := repo.Create(context.TODO(), "code1", "https://example.com")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "code1", url.ShortCode)
		assert.Equal(t, "https://example.com", url.OriginalURL)
		assert.Zero(t, url.AccessCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetByShortCode(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("code1").
			WillReturnRows(sqlmock.NewRows(columns))

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(1, "code1", "https://example.com", 3, time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("code1").
			WillReturnRows(rows)

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, int64(3), url.AccessCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetByOriginalURL(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("https://example.com").
			WillReturnRows(sqlmock.NewRows(columns))

		url, err := repo.GetByOriginalURL(context.TODO(), "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(1, "code1", "https://example.com", 0, time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("https://example.com").
			WillReturnRows(rows)

		url, err := repo.GetByOriginalURL(context.TODO(), "https://example.com")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "code1", url.ShortCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_IncrementAccessCount(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("code1").
			WillReturnRows(sqlmock.NewRows(columns))

		url, err := repo.IncrementAccessCount(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(1, "code1", "https://example.com", 6, time.Time{}, time.Time{})

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("code1").
			WillReturnRows(rows)

		url, err := repo.IncrementAccessCount(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, int64(6), url.AccessCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetPage(t *testing.T) {
	t.Run("empty window", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs(int64(10), int64(30)).
			WillReturnRows(sqlmock.NewRows(columns))

		urls, err := repo.GetPage(context.TODO(), 10, 30)

		assert.NoError(t, err)
		assert.Empty(t, urls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(2, "code2", "https://example.com/2", 0, time.Time{}, time.Time{}).
			AddRow(1, "code1", "https://example.com/1", 0, time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs(int64(10), int64(0)).
			WillReturnRows(rows)

		urls, err := repo.GetPage(context.TODO(), 10, 0)

		assert.NoError(t, err)
		assert.Len(t, urls, 2)
		assert.Equal(t, "code2", urls[0].ShortCode)
		assert.Equal(t, "code1", urls[1].ShortCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_Count(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM urls`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

		count, err := repo.Count(context.TODO())

		assert.NoError(t, err)
		assert.Equal(t, int64(25), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM urls`).
			WillReturnError(errUnknown)

		count, err := repo.Count(context.TODO())

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
