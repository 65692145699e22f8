package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iterview/session-service/internal/domain"
)

// ErrDuplicateEmail is returned by the in-memory directory on a second Create.
var ErrDuplicateEmail = errors.New("email already registered")

type memoryMemberRepository struct {
	mu      sync.RWMutex
	members map[string]domain.Member
}

// NewMemoryMemberRepository returns a process-local profile directory used when
// no Postgres DSN is configured.
func NewMemoryMemberRepository() MemberRepository {
	return &memoryMemberRepository{members: make(map[string]domain.Member)}
}

func (r *memoryMemberRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[email]
	return ok, nil
}

func (r *memoryMemberRepository) Create(_ context.Context, member *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.Email]; ok {
		return ErrDuplicateEmail
	}
	now := time.Now().UTC()
	member.ID = uuid.NewString()
	member.CreatedAt = now
	member.UpdatedAt = now

	stored := *member
	stored.Authorities = append([]domain.Authority(nil), member.Authorities...)
	r.members[member.Email] = stored
	return nil
}

func (r *memoryMemberRepository) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.members[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	member := stored
	member.Authorities = append([]domain.Authority(nil), stored.Authorities...)
	return &member, nil
}

type memoryAuthorityRepository struct {
	records map[domain.Authority]domain.AuthorityRecord
}

// NewMemoryAuthorityRepository seeds an authority table with the given names.
func NewMemoryAuthorityRepository(names ...domain.Authority) AuthorityRepository {
	records := make(map[domain.Authority]domain.AuthorityRecord, len(names))
	for i, name := range names {
		records[name] = domain.AuthorityRecord{ID: int64(i + 1), Name: name}
	}
	return &memoryAuthorityRepository{records: records}
}

func (r *memoryAuthorityRepository) FindByName(_ context.Context, name domain.Authority) (*domain.AuthorityRecord, error) {
	record, ok := r.records[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &record, nil
}

