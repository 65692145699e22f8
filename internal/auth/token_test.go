package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMintVerifyRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Minute, time.Hour)

	token, exp, err := codec.Mint(KindAccess, "a@x.com", []string{"ROLE_USER", "ROLE_ADMIN"}, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	v := codec.Verify(token)
	require.Equal(t, Valid, v.Status)
	require.Equal(t, KindAccess, v.Kind)
	require.Equal(t, "a@x.com", v.Subject)
	require.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, v.Authorities)
	require.Equal(t, exp.Unix(), v.ExpiresAt.Unix())
}

func TestMintProducesDistinctTokens(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Minute, time.Hour).WithClock(fixedClock(time.Unix(1_700_000_000, 0)))

	first, _, err := codec.MintRefresh("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)
	second, _, err := codec.MintRefresh("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyExpired(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	codec := NewTokenCodec("test-secret", time.Minute, time.Hour).WithClock(fixedClock(issued))

	token, _, err := codec.MintAccess("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)

	require.Equal(t, Valid, codec.Verify(token).Status)

	later := codec.WithClock(fixedClock(issued.Add(time.Minute)))
	v := later.Verify(token)
	require.Equal(t, Expired, v.Status)
	require.Equal(t, "a@x.com", v.Subject)

	subject, err := later.SubjectOf(token)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", subject)
}

func TestVerifyMalformed(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	codec := NewTokenCodec("test-secret", time.Minute, time.Hour).WithClock(fixedClock(issued))
	other := NewTokenCodec("other-secret", time.Minute, time.Hour).WithClock(fixedClock(issued))

	valid, _, err := codec.MintAccess("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)
	wrongKey, _, err := other.MintAccess("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)
	wrongKeyExpired, _, err := other.Mint(KindAccess, "a@x.com", []string{"ROLE_USER"}, -time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "a@x.com", "exp": issued.Add(time.Hour).Unix()})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong key", wrongKey},
		{"wrong key and expired", wrongKeyExpired},
		{"payload swapped", swapPayload(t, valid, `{"sub":"b@x.com","auth":["ROLE_ADMIN"],"exp":4102444800}`)},
		{"alg none", noneToken},
		{"truncated signature", valid[:len(valid)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, Malformed, codec.Verify(tt.token).Status)
			_, err := codec.SubjectOf(tt.token)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestTokenKindIsEnforced(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	codec := NewTokenCodec("test-secret", time.Minute, time.Hour).WithClock(fixedClock(issued))

	access, _, err := codec.MintAccess("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)
	refresh, _, err := codec.MintRefresh("a@x.com", []string{"ROLE_USER"})
	require.NoError(t, err)

	require.Equal(t, KindRefresh, codec.Verify(refresh).Kind)
	require.Equal(t, Valid, codec.VerifyAs(access, KindAccess).Status)
	require.Equal(t, Valid, codec.VerifyAs(refresh, KindRefresh).Status)
	require.Equal(t, Malformed, codec.VerifyAs(refresh, KindAccess).Status)
	require.Equal(t, Malformed, codec.VerifyAs(access, KindRefresh).Status)

	// Past the access TTL the refresh token is still live, and must not pass as an access token.
	later := codec.WithClock(fixedClock(issued.Add(2 * time.Minute)))
	require.Equal(t, Expired, later.VerifyAs(access, KindAccess).Status)
	require.Equal(t, Malformed, later.VerifyAs(refresh, KindAccess).Status)

	_, err = later.SubjectOf(refresh)
	require.ErrorIs(t, err, ErrWrongTokenKind)
	require.ErrorIs(t, err, ErrMalformedToken)
	_, err = later.ClaimsOf(refresh)
	require.ErrorIs(t, err, ErrWrongTokenKind)

	untyped := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@x.com", "exp": issued.Add(time.Hour).Unix()})
	untypedToken, err := untyped.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, Malformed, codec.VerifyAs(untypedToken, KindAccess).Status)
	_, err = codec.SubjectOf(untypedToken)
	require.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestClassificationString(t *testing.T) {
	require.Equal(t, "valid", Valid.String())
	require.Equal(t, "expired", Expired.String())
	require.Equal(t, "malformed", Malformed.String())
}

func swapPayload(t *testing.T, token, payload string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(payload))
	return strings.Join(parts, ".")
}
