package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(router fiber.Router, configManager *Manager) {
	handler := NewHandler(configManager)
	router.Get("/config", handler.GetConfig)
}
