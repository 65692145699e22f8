package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/iterview/session-service/internal/domain"
)

func TestMemoryMemberRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMemberRepository()

	exists, err := repo.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exists)

	member := &domain.Member{Email: "a@x.com", DisplayName: "A", Authorities: []domain.Authority{domain.AuthorityUser}}
	require.NoError(t, repo.Create(ctx, member))
	require.NotEmpty(t, member.ID)

	require.ErrorIs(t, repo.Create(ctx, &domain.Member{Email: "a@x.com"}), ErrDuplicateEmail)

	found, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, member.ID, found.ID)
	require.Equal(t, []string{"ROLE_USER"}, found.AuthorityNames())

	found.Authorities[0] = "ROLE_ADMIN"
	again, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, domain.AuthorityUser, again.Authorities[0])

	_, err = repo.GetByEmail(ctx, "b@x.com")
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryAuthorityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuthorityRepository(domain.AuthorityUser)

	record, err := repo.FindByName(ctx, domain.AuthorityUser)
	require.NoError(t, err)
	require.Equal(t, domain.AuthorityUser, record.Name)

	_, err = NewMemoryAuthorityRepository().FindByName(ctx, domain.AuthorityUser)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}
