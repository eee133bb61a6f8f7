package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/michraz/internal/config"
	"github.com/stwalsh4118/michraz/internal/database"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records Exec calls and answers QueryRow with a fixed count.
type fakeDB struct {
	execErr error
	rowErr  error
	calls   []execCall
	count   int64
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{n: f.count, err: f.rowErr}
}

type fakeRow struct {
	err error
	n   int64
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.n
	return nil
}

func TestEmailSignupRepository_Insert(t *testing.T) {
	db := &fakeDB{}
	repo := NewEmailSignupRepositoryWith(db)

	require.NoError(t, repo.Insert(context.Background(), "  dana@example.com ", "user-1"))

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "INSERT INTO email_signups")
	assert.Equal(t, "dana@example.com", db.calls[0].args[0])
	userID, ok := db.calls[0].args[1].(*string)
	require.True(t, ok)
	assert.Equal(t, "user-1", *userID)
}

func TestEmailSignupRepository_InsertAnonymous(t *testing.T) {
	db := &fakeDB{}
	repo := NewEmailSignupRepositoryWith(db)

	require.NoError(t, repo.Insert(context.Background(), "anon@example.com", ""))

	assert.Nil(t, db.calls[0].args[1].(*string))
}

func TestEmailSignupRepository_InsertError(t *testing.T) {
	cause := errors.New("connection reset")
	repo := NewEmailSignupRepositoryWith(&fakeDB{execErr: cause})

	err := repo.Insert(context.Background(), "dana@example.com", "")

	assert.ErrorIs(t, err, cause)
}

func TestEmailSignupRepository_EnsureSchema(t *testing.T) {
	db := &fakeDB{}

	require.NoError(t, NewEmailSignupRepositoryWith(db).EnsureSchema(context.Background()))
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS email_signups")
}

func TestEmailSignupRepository_Count(t *testing.T) {
	n, err := NewEmailSignupRepositoryWith(&fakeDB{count: 7}).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = NewEmailSignupRepositoryWith(&fakeDB{rowErr: pgx.ErrNoRows}).Count(context.Background())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

// TestEmailSignupRepository_Postgres runs against a real server when
// MICHRAZ_TEST_DB_HOST is set.
func TestEmailSignupRepository_Postgres(t *testing.T) {
	host := os.Getenv("MICHRAZ_TEST_DB_HOST")
	if host == "" || testing.Short() {
		t.Skip("Skipping integration test: MICHRAZ_TEST_DB_HOST not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgresPool(ctx, config.DatabaseConfig{
		Host:     host,
		Port:     envOr("MICHRAZ_TEST_DB_PORT", "5432"),
		Name:     envOr("MICHRAZ_TEST_DB_NAME", "postgres"),
		User:     envOr("MICHRAZ_TEST_DB_USER", "postgres"),
		Password: envOr("MICHRAZ_TEST_DB_PASSWORD", "postgres"),
		SSLMode:  envOr("MICHRAZ_TEST_DB_SSLMODE", "disable"),
		PoolMin:  0,
		PoolMax:  2,
	})
	require.NoError(t, err)
	defer db.Close()

	repo := NewEmailSignupRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	before, err := repo.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, "integration@example.com", ""))

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
