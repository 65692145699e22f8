package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Classification is the outcome of verifying a token.
type Classification int

const (
	Malformed Classification = iota
	Expired
	Valid
)

func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "malformed"
	}
}

// TokenKind separates access tokens from refresh tokens inside the signed payload.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

var (
	// ErrMalformedToken is returned when a token fails parsing or its signature check.
	ErrMalformedToken = errors.New("malformed token")
	// ErrWrongTokenKind is returned when a well-signed token is used in place of the other kind.
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// Claims describes JWT payload.
type Claims struct {
	Kind        TokenKind `json:"typ"`
	Authorities []string  `json:"auth"`
	jwt.RegisteredClaims
}

// Verification carries the classification plus the claims when the signature held.
type Verification struct {
	Status      Classification
	Kind        TokenKind
	Subject     string
	Authorities []string
	ExpiresAt   time.Time
}

// TokenCodec issues and validates HS256 JWTs for access and refresh tokens.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a new codec.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock returns a copy of the codec reading time from now.
func (tc *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *tc
	cp.now = now
	return &cp
}

// AccessTTL returns the access token lifetime.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// Mint signs a token of the given kind for subject expiring ttl from now.
func (tc *TokenCodec) Mint(kind TokenKind, subject string, authorities []string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tc.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Kind:        kind,
		Authorities: append([]string(nil), authorities...),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// MintAccess signs a short-lived access token.
func (tc *TokenCodec) MintAccess(subject string, authorities []string) (string, time.Time, error) {
	return tc.Mint(KindAccess, subject, authorities, tc.accessTTL)
}

// MintRefresh signs a long-lived refresh token.
func (tc *TokenCodec) MintRefresh(subject string, authorities []string) (string, time.Time, error) {
	return tc.Mint(KindRefresh, subject, authorities, tc.refreshTTL)
}

// Verify checks the signature before looking at expiry, so a tampered token is
// always Malformed whatever its exp claim says.
func (tc *TokenCodec) Verify(tokenStr string) Verification {
	claims, err := tc.parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return Verification{Status: Malformed}
	}

	v := Verification{
		Status:      Valid,
		Kind:        claims.Kind,
		Subject:     claims.Subject,
		Authorities: claims.Authorities,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if !tc.now().Before(claims.ExpiresAt.Time) {
		v.Status = Expired
	}
	return v
}

// VerifyAs is Verify restricted to one kind. A token of any other kind is Malformed.
func (tc *TokenCodec) VerifyAs(tokenStr string, kind TokenKind) Verification {
	v := tc.Verify(tokenStr)
	if v.Status != Malformed && v.Kind != kind {
		return Verification{Status: Malformed}
	}
	return v
}

// SubjectOf returns the subject of a correctly signed access token regardless of expiry.
func (tc *TokenCodec) SubjectOf(tokenStr string) (string, error) {
	claims, err := tc.ClaimsOf(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClaimsOf returns the claims of a correctly signed access token regardless of expiry.
func (tc *TokenCodec) ClaimsOf(tokenStr string) (*Claims, error) {
	claims, err := tc.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	if claims.Kind != KindAccess {
		return nil, errors.Join(ErrMalformedToken, ErrWrongTokenKind)
	}
	return claims, nil
}

func (tc *TokenCodec) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tc.secret, nil
	}, jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
