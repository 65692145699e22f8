package dto

import (
	"time"

	"github.com/iterview/session-service/internal/domain"
)

// SignupRequest payload for new members.
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=64"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ReissueRequest carries the pair being rotated.
type ReissueRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and reissue.
type TokenResponse struct {
	GrantType            string    `json:"grant_type"`
	AccessToken          string    `json:"access_token"`
	RefreshToken         string    `json:"refresh_token"`
	AccessTokenExpiresIn int64     `json:"access_token_expires_in"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// MemberResponse is the public profile view.
type MemberResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Authorities []string `json:"authorities"`
}

// NewTokenResponse maps a token pair. AccessTokenExpiresIn is the expiry as unix milliseconds.
func NewTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		GrantType:            pair.GrantType,
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		AccessTokenExpiresIn: pair.AccessTokenExpiresAt.UnixMilli(),
		ExpiresAt:            pair.AccessTokenExpiresAt,
	}
}

// NewMemberResponse maps a member profile.
func NewMemberResponse(member *domain.Member) MemberResponse {
	return MemberResponse{
		ID:          member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		Authorities: member.AuthorityNames(),
	}
}
