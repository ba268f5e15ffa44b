package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/auth"
)

const (
	// ClaimsLocalKey holds the verified *auth.Claims of the caller.
	ClaimsLocalKey = "claims"
	// UserIDLocalKey holds the caller's numeric user ID.
	UserIDLocalKey = "user_id"
)

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>"
// header with 401. On success the claims and user ID are stored in locals.
func RequireAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		uid, err := claims.UserID()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(ClaimsLocalKey, claims)
		c.Locals(UserIDLocalKey, uid)
		return c.Next()
	}
}

// UserID returns the authenticated user's ID stored by RequireAuth.
func UserID(c *fiber.Ctx) (int64, bool) {
	uid, ok := c.Locals(UserIDLocalKey).(int64)
	return uid, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
