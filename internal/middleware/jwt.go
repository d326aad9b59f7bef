package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/access"
)

const principalKey = "principal"

// TokenVerifier checks bearer tokens and extracts their subject.
type TokenVerifier interface {
	Validate(token string) bool
	Subject(token string) string
}

// PrincipalResolver loads the principal for a token subject. ok is false when
// the subject no longer exists.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, subject string) (p access.Principal, ok bool, err error)
}

// JWTAuth returns a middleware that validates bearer tokens and attaches the
// resolved principal to the request.
func JWTAuth(tokens TokenVerifier, users PrincipalResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		if !tokens.Validate(tokenStr) {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		p, ok, err := users.ResolvePrincipal(c.UserContext(), tokens.Subject(tokenStr))
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(principalKey, p)
		return c.Next()
	}
}

// CurrentPrincipal returns the principal attached by JWTAuth, or the
// anonymous principal.
func CurrentPrincipal(c *fiber.Ctx) access.Principal {
	if p, ok := c.Locals(principalKey).(access.Principal); ok {
		return p
	}
	return access.Anonymous
}
