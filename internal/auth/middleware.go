package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/iterview/session-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject     string
	Authorities []string
	AccessToken string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenCodec
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenCodec) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	v := m.tokens.VerifyAs(token, KindAccess)
	switch v.Status {
	case Valid:
	case Expired:
		return apperrors.NewAccessTokenExpired()
	default:
		return apperrors.NewBadToken("invalid token")
	}

	c.Locals(principalKey, &Principal{
		Subject:     v.Subject,
		Authorities: v.Authorities,
		AccessToken: token,
	})
	return c.Next()
}

// BearerToken strips the Bearer scheme from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
