package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iterview/session-service/internal/domain"
)

// AuthorityRepository looks up provisioned authorities.
type AuthorityRepository interface {
	FindByName(ctx context.Context, name domain.Authority) (*domain.AuthorityRecord, error)
}

type authorityRepository struct {
	pool *pgxpool.Pool
}

// NewAuthorityRepository returns a Postgres-backed implementation.
func NewAuthorityRepository(pool *pgxpool.Pool) AuthorityRepository {
	return &authorityRepository{pool: pool}
}

func (r *authorityRepository) FindByName(ctx context.Context, name domain.Authority) (*domain.AuthorityRecord, error) {
	const query = `SELECT id, name FROM authorities WHERE name=$1`

	var (
		record  domain.AuthorityRecord
		rawName string
	)
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&record.ID, &rawName); err != nil {
		return nil, err
	}
	record.Name = domain.Authority(rawName)
	return &record, nil
}
