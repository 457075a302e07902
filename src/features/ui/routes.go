package ui

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the page routes. requireSession guards the dashboard.
func RegisterRoutes(app *fiber.App, handler *Handler, requireSession fiber.Handler) {
	app.Get("/", handler.Root)
	app.Get("/dashboard", requireSession, handler.RenderDashboard)
}
