package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/iterview/session-service/internal/auth"
	"github.com/iterview/session-service/internal/config"
	"github.com/iterview/session-service/internal/domain"
	"github.com/iterview/session-service/internal/events"
	"github.com/iterview/session-service/internal/repository"
	apperrors "github.com/iterview/session-service/pkg/util/errorutil"
)

const uniqueViolation = "23505"

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthService owns the session lifecycle: signup, login, reissue, logout and
// identity resolution. Each subject has at most one stored refresh token.
type AuthService struct {
	members          repository.MemberRepository
	authorities      repository.AuthorityRepository
	refresh          repository.RefreshTokenStore
	verifier         CredentialVerifier
	tokens           *auth.TokenCodec
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	locks            *subjectLocks
	bcryptCost       int
	defaultAuthority domain.Authority
	now              func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service. Verifier,
// Tokens, Dispatcher and Logger are optional.
type AuthDependencies struct {
	MemberRepo    repository.MemberRepository
	AuthorityRepo repository.AuthorityRepository
	RefreshStore  repository.RefreshTokenStore
	Verifier      CredentialVerifier
	Tokens        *auth.TokenCodec
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	}
	verifier := deps.Verifier
	if verifier == nil {
		verifier = NewPasswordVerifier(deps.MemberRepo)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultAuthority := domain.Authority(cfg.Auth.DefaultAuthority)
	if defaultAuthority == "" {
		defaultAuthority = domain.AuthorityUser
	}

	return &AuthService{
		members:          deps.MemberRepo,
		authorities:      deps.AuthorityRepo,
		refresh:          deps.RefreshStore,
		verifier:         verifier,
		tokens:           tokens,
		dispatcher:       deps.Dispatcher,
		logger:           logger,
		locks:            newSubjectLocks(),
		bcryptCost:       cfg.Auth.BcryptCost,
		defaultAuthority: defaultAuthority,
		now:              time.Now,
	}
}

// TokenCodec exposes the underlying codec for middleware usage.
func (s *AuthService) TokenCodec() *auth.TokenCodec {
	return s.tokens
}

// CheckProvisioning fails when the default authority is missing, so a bad
// deployment is caught before it serves signups.
func (s *AuthService) CheckProvisioning(ctx context.Context) error {
	_, err := s.defaultAuthorityRecord(ctx)
	return err
}

// Signup registers a new member with the default authority.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.Member, error) {
	exists, err := s.members.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("check email: %w", err))
	}
	if exists {
		return nil, apperrors.NewDuplicateSubject(in.Email)
	}

	authority, err := s.defaultAuthorityRecord(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	member := &domain.Member{
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Authorities:  []domain.Authority{authority.Name},
	}
	if err := s.members.Create(ctx, member); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.NewDuplicateSubject(in.Email)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create member: %w", err))
	}

	s.publish(ctx, events.EventSubjectRegistered, member.Email, nil)
	return member, nil
}

// Login verifies credentials and starts a new session, replacing any refresh
// token the subject already had.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	subject, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, apperrors.NewInvalidCredentials(err)
	}

	member, err := s.members.GetByEmail(ctx, subject)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load member: %w", err))
	}
	authorities := member.AuthorityNames()

	accessToken, accessExp, err := s.tokens.MintAccess(subject, authorities)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("mint access token: %w", err))
	}

	unlock := s.locks.Lock(subject)
	defer unlock()

	replaced, err := s.evictRefreshToken(ctx, subject)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExp, err := s.tokens.MintRefresh(subject, authorities)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("mint refresh token: %w", err))
	}
	if err := s.refresh.Save(ctx, &domain.RefreshToken{Subject: subject, Value: refreshToken}); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenExists) {
			return nil, apperrors.NewSessionConflict(err)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("save refresh token: %w", err))
	}

	s.logger.Debug("session started", zap.String("subject", subject), zap.Bool("replaced", replaced))
	s.publish(ctx, events.EventSessionStarted, subject, events.SessionStartedPayload{
		ReplacedExisting: replaced,
		RefreshExpiresAt: refreshExp,
	})
	return newTokenPair(accessToken, refreshToken, accessExp), nil
}

// evictRefreshToken deletes the subject's stored refresh token if one exists.
func (s *AuthService) evictRefreshToken(ctx context.Context, subject string) (bool, error) {
	exists, err := s.refresh.Exists(ctx, subject)
	if err != nil {
		return false, apperrors.NewInternalError(fmt.Errorf("check refresh token: %w", err))
	}
	if !exists {
		return false, nil
	}

	current, err := s.refresh.Find(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			s.logger.Error("refresh token reported present but not found",
				zap.String("subject", subject), zap.Error(err))
			return false, apperrors.NewSessionLookupInconsistent(err)
		}
		return false, apperrors.NewInternalError(fmt.Errorf("find refresh token: %w", err))
	}
	deleted, err := s.refresh.Delete(ctx, current)
	if err != nil {
		return false, apperrors.NewInternalError(fmt.Errorf("delete refresh token: %w", err))
	}
	// A miss means another instance already replaced or removed it; Save settles who wins.
	return deleted, nil
}

// Reissue rotates a session: the presented refresh token must be valid and
// equal to the stored one, and is replaced by a new value so it cannot be
// used twice. The access token may already be expired.
func (s *AuthService) Reissue(ctx context.Context, accessToken, refreshToken string) (*domain.TokenPair, error) {
	switch s.tokens.VerifyAs(refreshToken, auth.KindRefresh).Status {
	case auth.Valid:
	case auth.Expired:
		return nil, apperrors.NewRefreshTokenExpired()
	default:
		return nil, apperrors.NewBadToken("invalid refresh token")
	}

	claims, err := s.tokens.ClaimsOf(accessToken)
	if err != nil {
		return nil, apperrors.NewBadToken("invalid access token")
	}
	subject := claims.Subject

	unlock := s.locks.Lock(subject)
	defer unlock()

	stored, err := s.refresh.Find(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, apperrors.NewLoggedOut()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("find refresh token: %w", err))
	}
	if stored.Value != refreshToken {
		return nil, apperrors.NewBadToken("refresh token does not match")
	}

	newAccess, accessExp, err := s.tokens.MintAccess(subject, claims.Authorities)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("mint access token: %w", err))
	}
	newRefresh, refreshExp, err := s.tokens.MintRefresh(subject, claims.Authorities)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("mint refresh token: %w", err))
	}

	if err := s.refresh.UpdateValue(ctx, stored, newRefresh); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenStale) {
			return nil, apperrors.NewBadToken("refresh token does not match")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("rotate refresh token: %w", err))
	}

	s.logger.Debug("session rotated", zap.String("subject", subject))
	s.publish(ctx, events.EventSessionRotated, subject, events.SessionRotatedPayload{RefreshExpiresAt: refreshExp})
	return newTokenPair(newAccess, newRefresh, accessExp), nil
}

// Logout ends the subject's session by deleting its refresh token. A subject
// without a stored token gets LoggedOut rather than success.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	subject, err := s.tokens.SubjectOf(accessToken)
	if err != nil {
		return apperrors.NewBadToken("invalid access token")
	}

	unlock := s.locks.Lock(subject)
	defer unlock()

	stored, err := s.refresh.Find(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return apperrors.NewLoggedOut()
		}
		return apperrors.NewInternalError(fmt.Errorf("find refresh token: %w", err))
	}
	deleted, err := s.refresh.Delete(ctx, stored)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("delete refresh token: %w", err))
	}
	if !deleted {
		// Rotated or removed elsewhere between Find and Delete.
		return apperrors.NewLoggedOut()
	}

	s.publish(ctx, events.EventSessionEnded, subject, nil)
	return nil
}

// ResolveIdentity returns the profile of the access token's subject.
func (s *AuthService) ResolveIdentity(ctx context.Context, accessToken string) (*domain.Member, error) {
	subject, err := s.tokens.SubjectOf(accessToken)
	if err != nil {
		return nil, apperrors.NewBadToken("invalid access token")
	}

	member, err := s.members.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewSubjectNotFound()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load member: %w", err))
	}
	return member, nil
}

func (s *AuthService) defaultAuthorityRecord(ctx context.Context) (*domain.AuthorityRecord, error) {
	record, err := s.authorities.FindByName(ctx, s.defaultAuthority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("default authority missing", zap.String("authority", string(s.defaultAuthority)))
			return nil, apperrors.NewMissingDefaultAuthority(string(s.defaultAuthority), err)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("find authority: %w", err))
	}
	return record, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish session event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func newTokenPair(accessToken, refreshToken string, accessExp time.Time) *domain.TokenPair {
	return &domain.TokenPair{
		GrantType:            domain.GrantTypeBearer,
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: accessExp,
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
