package domain

import "time"

// Authority is an opaque role label.
type Authority string

const AuthorityUser Authority = "ROLE_USER"

// AuthorityRecord is a provisioned authority row.
type AuthorityRecord struct {
	ID   int64
	Name Authority
}

// GrantTypeBearer is the token type returned to clients.
const GrantTypeBearer = "Bearer"

// TokenPair is returned by login and reissue.
type TokenPair struct {
	GrantType            string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
}

// RefreshToken is the single persisted refresh token of a subject.
type RefreshToken struct {
	Subject   string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
