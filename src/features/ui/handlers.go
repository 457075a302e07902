package ui

import (
	"log/slog"

	"github.com/contre95/navidrop/src/features/auth"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the UI feature.
type Handler struct {
	appName   string
	maxSizeMB int
}

// NewHandler creates a new handler for the UI feature.
func NewHandler(appName string, maxSizeMB int) *Handler {
	return &Handler{appName: appName, maxSizeMB: maxSizeMB}
}

// RenderDashboard renders the upload dashboard.
func (h *Handler) RenderDashboard(c *fiber.Ctx) error {
	slog.Debug("RenderDashboard handler called")
	user, _ := c.Locals(auth.UserKey).(string)
	return c.Render("dashboard", fiber.Map{
		"Title":     "Dashboard",
		"AppName":   h.appName,
		"User":      user,
		"MaxSizeMB": h.maxSizeMB,
	})
}

// Root sends the browser to the dashboard; the session check happens there.
func (h *Handler) Root(c *fiber.Ctx) error {
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}
