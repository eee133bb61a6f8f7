package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stwalsh4118/michraz/internal/database"
)

// DBTX is the subset of pgx used by the repositories. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmailSignupRepository stores newsletter signups in the hosted database.
type EmailSignupRepository interface {
	// EnsureSchema creates the email_signups table when it is missing.
	EnsureSchema(ctx context.Context) error

	// Insert records an email, optionally tied to an authenticated user.
	// An empty userID is stored as NULL.
	Insert(ctx context.Context, email, userID string) error

	// Count returns the number of stored signups.
	Count(ctx context.Context) (int64, error)
}

type emailSignupRepository struct {
	db DBTX
}

// NewEmailSignupRepository creates a repository backed by the pool in db.
func NewEmailSignupRepository(db *database.Database) EmailSignupRepository {
	return &emailSignupRepository{db: db.Pool}
}

// NewEmailSignupRepositoryWith creates a repository on any DBTX.
func NewEmailSignupRepositoryWith(db DBTX) EmailSignupRepository {
	return &emailSignupRepository{db: db}
}

const createEmailSignupsTable = `
	CREATE TABLE IF NOT EXISTS email_signups (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT NOT NULL,
		user_id    TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

func (r *emailSignupRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createEmailSignupsTable); err != nil {
		return fmt.Errorf("failed to create email_signups table: %w", err)
	}
	return nil
}

func (r *emailSignupRepository) Insert(ctx context.Context, email, userID string) error {
	query := `INSERT INTO email_signups (email, user_id) VALUES ($1, $2)`

	var user *string
	if userID != "" {
		user = &userID
	}

	if _, err := r.db.Exec(ctx, query, strings.TrimSpace(email), user); err != nil {
		return fmt.Errorf("failed to insert email signup: %w", err)
	}
	return nil
}

func (r *emailSignupRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM email_signups`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count email signups: %w", err)
	}
	return n, nil
}
