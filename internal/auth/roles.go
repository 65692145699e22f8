package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireAuthority ensures the principal carries at least one of the allowed
// authorities. With no arguments any authenticated principal passes.
func RequireAuthority(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		for _, a := range principal.Authorities {
			if _, exists := allowedSet[a]; exists {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "insufficient authority")
	}
}
