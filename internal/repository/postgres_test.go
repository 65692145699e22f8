package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iterview/session-service/internal/domain"
)

func TestPostgresStoreSaveIsInsertOnly(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresRefreshTokenStore(newPostgresPool(t))

	exists, err := store.Exists(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exists)
	_, err = store.Find(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrRefreshTokenNotFound)

	token := &domain.RefreshToken{Subject: "a@x.com", Value: "rt-1"}
	require.NoError(t, store.Save(ctx, token))
	require.False(t, token.CreatedAt.IsZero())

	err = store.Save(ctx, &domain.RefreshToken{Subject: "a@x.com", Value: "rt-2"})
	require.ErrorIs(t, err, ErrRefreshTokenExists)

	found, err := store.Find(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "rt-1", found.Value)
	require.Equal(t, "a@x.com", found.Subject)
}

func TestPostgresStoreUpdateValueComparesAndSwaps(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresRefreshTokenStore(newPostgresPool(t))

	require.NoError(t, store.Save(ctx, &domain.RefreshToken{Subject: "a@x.com", Value: "rt-1"}))
	read, err := store.Find(ctx, "a@x.com")
	require.NoError(t, err)
	stale := *read

	require.NoError(t, store.UpdateValue(ctx, read, "rt-2"))
	require.Equal(t, "rt-2", read.Value)

	err = store.UpdateValue(ctx, &stale, "rt-3")
	require.ErrorIs(t, err, ErrRefreshTokenStale)

	found, err := store.Find(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "rt-2", found.Value)

	err = store.UpdateValue(ctx, &domain.RefreshToken{Subject: "b@x.com", Value: "rt-1"}, "rt-9")
	require.ErrorIs(t, err, ErrRefreshTokenStale)
}

func TestPostgresStoreDeleteOnlyRemovesGivenValue(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresRefreshTokenStore(newPostgresPool(t))

	token := &domain.RefreshToken{Subject: "a@x.com", Value: "rt-1"}
	require.NoError(t, store.Save(ctx, token))

	deleted, err := store.Delete(ctx, &domain.RefreshToken{Subject: "a@x.com", Value: "other"})
	require.NoError(t, err)
	require.False(t, deleted)
	exists, err := store.Exists(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, exists)

	deleted, err = store.Delete(ctx, token)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = store.Delete(ctx, token)
	require.NoError(t, err)
	require.False(t, deleted)

	exists, err = store.Exists(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPostgresStoreConcurrentRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresRefreshTokenStore(newPostgresPool(t))
	require.NoError(t, store.Save(ctx, &domain.RefreshToken{Subject: "a@x.com", Value: "rt-1"}))

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			read := &domain.RefreshToken{Subject: "a@x.com", Value: "rt-1"}
			err := store.UpdateValue(ctx, read, "rt-next-"+string(rune('a'+i)))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrRefreshTokenStale)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestPostgresMemberDirectory(t *testing.T) {
	ctx := context.Background()
	pool := newPostgresPool(t)
	members := NewMemberRepository(pool)
	authorities := NewAuthorityRepository(pool)

	record, err := authorities.FindByName(ctx, domain.AuthorityUser)
	require.NoError(t, err)
	require.Equal(t, domain.AuthorityUser, record.Name)
	_, err = authorities.FindByName(ctx, "ROLE_MISSING")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	_, err = pool.Exec(ctx, `INSERT INTO authorities (name) VALUES ('ROLE_ADMIN') ON CONFLICT (name) DO NOTHING`)
	require.NoError(t, err)

	member := &domain.Member{
		Email:        "a@x.com",
		PasswordHash: "hash",
		DisplayName:  "A",
		Authorities:  []domain.Authority{domain.AuthorityUser, "ROLE_ADMIN"},
	}
	require.NoError(t, members.Create(ctx, member))
	require.NotEmpty(t, member.ID)

	exists, err := members.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, exists)

	loaded, err := members.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, member.ID, loaded.ID)
	require.Equal(t, "hash", loaded.PasswordHash)
	require.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, loaded.AuthorityNames())

	_, err = members.GetByEmail(ctx, "ghost@x.com")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	err = members.Create(ctx, &domain.Member{Email: "a@x.com", PasswordHash: "hash"})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	require.Equal(t, "23505", pgErr.Code)
}

func TestPostgresMemberWithoutAuthorities(t *testing.T) {
	ctx := context.Background()
	members := NewMemberRepository(newPostgresPool(t))

	require.NoError(t, members.Create(ctx, &domain.Member{Email: "bare@x.com", PasswordHash: "hash"}))
	loaded, err := members.GetByEmail(ctx, "bare@x.com")
	require.NoError(t, err)
	require.Empty(t, loaded.Authorities)
}

func TestPostgresMemberCreateRollsBackOnUnknownAuthority(t *testing.T) {
	ctx := context.Background()
	members := NewMemberRepository(newPostgresPool(t))

	err := members.Create(ctx, &domain.Member{
		Email:        "a@x.com",
		PasswordHash: "hash",
		Authorities:  []domain.Authority{"ROLE_MISSING"},
	})
	require.ErrorIs(t, err, pgx.ErrNoRows)

	exists, err := members.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exists)
}
