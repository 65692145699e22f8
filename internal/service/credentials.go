package service

import (
	"context"

	"github.com/iterview/session-service/internal/auth"
	"github.com/iterview/session-service/internal/repository"
)

// CredentialVerifier authenticates an email/password pair and returns the subject.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (string, error)
}

type passwordVerifier struct {
	members repository.MemberRepository
}

// NewPasswordVerifier checks passwords against the bcrypt hashes in the profile directory.
func NewPasswordVerifier(members repository.MemberRepository) CredentialVerifier {
	return &passwordVerifier{members: members}
}

func (v *passwordVerifier) Verify(ctx context.Context, email, password string) (string, error) {
	member, err := v.members.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if err := auth.ComparePassword(member.PasswordHash, password); err != nil {
		return "", err
	}
	return member.Email, nil
}
