package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iterview/session-service/internal/domain"
)

const (
	fieldValue     = "value"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// KEYS[1]=entry ARGV[1]=value ARGV[2]=now ms ARGV[3]=ttl ms
var saveRefreshLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "value", ARGV[1], "created_at", ARGV[2], "updated_at", ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

// KEYS[1]=entry ARGV[1]=value
var deleteRefreshLua = redis.NewScript(`
if redis.call("HGET", KEYS[1], "value") == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// KEYS[1]=entry ARGV[1]=old value ARGV[2]=new value ARGV[3]=now ms ARGV[4]=ttl ms
var rotateRefreshLua = redis.NewScript(`
if redis.call("HGET", KEYS[1], "value") ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "value", ARGV[2], "updated_at", ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return 1
`)

type redisRefreshTokenStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRefreshTokenStore keeps one hash per subject. Entries expire with the
// refresh token lifetime so unused sessions disappear on their own.
func NewRedisRefreshTokenStore(client redis.UniversalClient, prefix string, ttl time.Duration) RefreshTokenStore {
	return &redisRefreshTokenStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *redisRefreshTokenStore) key(subject string) string {
	return s.prefix + subject
}

func (s *redisRefreshTokenStore) Exists(ctx context.Context, subject string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(subject)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisRefreshTokenStore) Find(ctx context.Context, subject string) (*domain.RefreshToken, error) {
	fields, err := s.client.HGetAll(ctx, s.key(subject)).Result()
	if err != nil {
		return nil, err
	}
	value, ok := fields[fieldValue]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	return &domain.RefreshToken{
		Subject:   subject,
		Value:     value,
		CreatedAt: parseMillis(fields[fieldCreatedAt]),
		UpdatedAt: parseMillis(fields[fieldUpdatedAt]),
	}, nil
}

func (s *redisRefreshTokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	now := s.now().UTC()
	ok, err := saveRefreshLua.Run(ctx, s.client,
		[]string{s.key(token.Subject)},
		token.Value, now.UnixMilli(), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrRefreshTokenExists
	}
	token.CreatedAt = now
	token.UpdatedAt = now
	return nil
}

func (s *redisRefreshTokenStore) Delete(ctx context.Context, token *domain.RefreshToken) (bool, error) {
	n, err := deleteRefreshLua.Run(ctx, s.client, []string{s.key(token.Subject)}, token.Value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisRefreshTokenStore) UpdateValue(ctx context.Context, existing *domain.RefreshToken, newValue string) error {
	now := s.now().UTC()
	ok, err := rotateRefreshLua.Run(ctx, s.client,
		[]string{s.key(existing.Subject)},
		existing.Value, newValue, now.UnixMilli(), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrRefreshTokenStale
	}
	existing.Value = newValue
	existing.UpdatedAt = now
	return nil
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
