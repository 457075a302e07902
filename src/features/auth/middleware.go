package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserKey is the fiber.Ctx locals key holding the logged in username.
const UserKey = "user"

// RequireSession rejects requests without a valid session cookie. API calls get a
// 401 JSON body, pages are redirected to the login form.
func RequireSession(service *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := service.ParseToken(c.Cookies(service.CookieName()))
		if err != nil {
			slog.Debug("Session rejected", "path", c.Path(), "error", err)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
			}
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		c.Locals(UserKey, user)
		return c.Next()
	}
}
