package api

import (
	"strings"

	userdomain "github.com/example/neardoer/domain/user"
	"github.com/example/neardoer/modules/user"
	"github.com/gofiber/fiber/v2"
)

// SessionContextKey is the Fiber locals key holding the caller's session.
const SessionContextKey = "session"

// AuthMiddleware resolves the bearer token into a session.
func AuthMiddleware(users user.UserPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization header is required")
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header format, use: Bearer <token>")
		}

		session, err := users.VerifySession(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(SessionContextKey, session)
		return c.Next()
	}
}

// RequireRole rejects sessions whose role is not role.
func RequireRole(role userdomain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := sessionFrom(c)
		if session == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		if session.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "only a "+string(role)+" can do that")
		}
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) *userdomain.Session {
	session, _ := c.Locals(SessionContextKey).(*userdomain.Session)
	return session
}

// bySessionUser keys rate limits by the authenticated user.
func bySessionUser(c *fiber.Ctx) string {
	if session := sessionFrom(c); session != nil {
		return session.UserID
	}
	return ""
}
