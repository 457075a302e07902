package auth

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the auth feature.
type Handler struct {
	service *Service
	appName string
}

// NewHandler creates a new handler for the auth feature.
func NewHandler(service *Service, appName string) *Handler {
	return &Handler{service: service, appName: appName}
}

// RenderLogin renders the login form.
func (h *Handler) RenderLogin(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{"AppName": h.appName})
}

// Login checks the submitted form and sets the session cookie.
func (h *Handler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	if !h.service.CheckCredentials(username, c.FormValue("password")) {
		slog.Warn("Failed login attempt", "username", username, "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"AppName": h.appName,
			"Error":   "Invalid credentials",
		})
	}
	token, err := h.service.IssueToken()
	if err != nil {
		return err
	}
	c.Cookie(h.cookie(token, h.service.opts.MaxAge))
	slog.Info("User logged in", "username", username, "ip", c.IP())
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.cookie("", -time.Hour))
	return c.Redirect("/login", fiber.StatusSeeOther)
}

func (h *Handler) cookie(value string, maxAge time.Duration) *fiber.Cookie {
	opts := h.service.opts
	return &fiber.Cookie{
		Name:     opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		Secure:   opts.Secure,
		HTTPOnly: true,
		SameSite: opts.SameSite,
	}
}
