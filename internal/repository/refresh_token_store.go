package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iterview/session-service/internal/domain"
)

var (
	// ErrRefreshTokenNotFound means the subject has no stored refresh token.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExists means Save was called while an entry is still stored.
	ErrRefreshTokenExists = errors.New("refresh token already stored for subject")
	// ErrRefreshTokenStale means the stored value changed since it was read.
	ErrRefreshTokenStale = errors.New("stored refresh token changed")
)

// RefreshTokenStore holds at most one refresh token per subject. Save only
// inserts, UpdateValue is a compare-and-swap on the previously read value and
// Delete only removes the value it was given, reporting false when that value
// was no longer stored. Racing writers for a subject cannot both win.
type RefreshTokenStore interface {
	Exists(ctx context.Context, subject string) (bool, error)
	Find(ctx context.Context, subject string) (*domain.RefreshToken, error)
	Save(ctx context.Context, token *domain.RefreshToken) error
	Delete(ctx context.Context, token *domain.RefreshToken) (bool, error)
	UpdateValue(ctx context.Context, existing *domain.RefreshToken, newValue string) error
}

type postgresRefreshTokenStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRefreshTokenStore stores refresh tokens in a table keyed by subject.
func NewPostgresRefreshTokenStore(pool *pgxpool.Pool) RefreshTokenStore {
	return &postgresRefreshTokenStore{pool: pool, now: time.Now}
}

func (s *postgresRefreshTokenStore) Exists(ctx context.Context, subject string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE subject=$1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, subject).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *postgresRefreshTokenStore) Find(ctx context.Context, subject string) (*domain.RefreshToken, error) {
	const query = `
        SELECT subject, value, created_at, updated_at
        FROM refresh_tokens WHERE subject=$1`

	var token domain.RefreshToken
	if err := s.pool.QueryRow(ctx, query, subject).Scan(
		&token.Subject,
		&token.Value,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (s *postgresRefreshTokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (subject, value, created_at, updated_at)
        VALUES ($1, $2, $3, $3)
        ON CONFLICT (subject) DO NOTHING`

	now := s.now().UTC()
	cmd, err := s.pool.Exec(ctx, query, token.Subject, token.Value, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenExists
	}
	token.CreatedAt = now
	token.UpdatedAt = now
	return nil
}

func (s *postgresRefreshTokenStore) Delete(ctx context.Context, token *domain.RefreshToken) (bool, error) {
	const query = `DELETE FROM refresh_tokens WHERE subject=$1 AND value=$2`

	cmd, err := s.pool.Exec(ctx, query, token.Subject, token.Value)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *postgresRefreshTokenStore) UpdateValue(ctx context.Context, existing *domain.RefreshToken, newValue string) error {
	const query = `
        UPDATE refresh_tokens SET value=$3, updated_at=$4
        WHERE subject=$1 AND value=$2`

	now := s.now().UTC()
	cmd, err := s.pool.Exec(ctx, query, existing.Subject, existing.Value, newValue, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenStale
	}
	existing.Value = newValue
	existing.UpdatedAt = now
	return nil
}
