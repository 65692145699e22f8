package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iterview/session-service/internal/domain"
)

// MemberRepository is the profile directory: subject email to member record.
type MemberRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, member *domain.Member) error
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM members WHERE email=$1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts the member and links its authorities in one transaction.
func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	const insertMember = `
        INSERT INTO members (email, password_hash, display_name)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	const linkAuthority = `
        INSERT INTO member_authorities (member_id, authority_id)
        SELECT $1, id FROM authorities WHERE name=$2`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertMember,
			member.Email,
			member.PasswordHash,
			member.DisplayName,
		).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt); err != nil {
			return err
		}

		for _, authority := range member.Authorities {
			cmd, err := tx.Exec(ctx, linkAuthority, member.ID, string(authority))
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 0 {
				return pgx.ErrNoRows
			}
		}
		return nil
	})
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	const query = `
        SELECT m.id, m.email, m.password_hash, m.display_name, m.created_at, m.updated_at,
               COALESCE(array_agg(a.name ORDER BY a.name) FILTER (WHERE a.name IS NOT NULL), '{}')
        FROM members m
        LEFT JOIN member_authorities ma ON ma.member_id = m.id
        LEFT JOIN authorities a ON a.id = ma.authority_id
        WHERE m.email=$1
        GROUP BY m.id`

	var (
		member      domain.Member
		authorities []string
	)
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&member.ID,
		&member.Email,
		&member.PasswordHash,
		&member.DisplayName,
		&member.CreatedAt,
		&member.UpdatedAt,
		&authorities,
	); err != nil {
		return nil, err
	}
	for _, name := range authorities {
		member.Authorities = append(member.Authorities, domain.Authority(name))
	}
	return &member, nil
}
