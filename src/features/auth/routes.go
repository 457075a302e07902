package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit caps POST /login per client IP. Max 0 disables it.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// RegisterRoutes registers the login and logout routes.
func RegisterRoutes(app *fiber.App, handler *Handler, rl RateLimit) {
	login := []fiber.Handler{}
	if rl.Max > 0 {
		login = append(login, limiter.New(limiter.Config{
			Max:        rl.Max,
			Expiration: rl.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests")
			},
		}))
	}
	login = append(login, handler.Login)

	app.Get("/login", handler.RenderLogin)
	app.Post("/login", login...)
	app.Post("/logout", handler.Logout)
}
