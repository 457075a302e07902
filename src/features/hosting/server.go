package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/navidrop/src/features/auth"
	"github.com/contre95/navidrop/src/features/catalog"
	"github.com/contre95/navidrop/src/features/config"
	"github.com/contre95/navidrop/src/features/metrics"
	"github.com/contre95/navidrop/src/features/ui"
	"github.com/contre95/navidrop/src/features/uploading"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

// Services are the feature services exposed over HTTP.
type Services struct {
	Auth      *auth.Service
	Uploading *uploading.Service
	Catalog   *catalog.Service
	Metrics   *metrics.Metrics
}

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server rendering templates from ./views.
func NewServer(cfg *config.Manager, services Services) *Server {
	engine := html.New("./views", ".html")
	engine.Debug(cfg.Get().Logger.Level == "debug")
	engine.AddFunc("mb", func(n int) string {
		return fmt.Sprintf("%d MB", n)
	})
	return newServer(cfg, engine, services)
}

func newServer(cfg *config.Manager, views fiber.Views, services Services) *Server {
	c := cfg.Get()
	app := fiber.New(fiber.Config{
		Views:                 views,
		ErrorHandler:          errorHandler,
		AppName:               c.AppName,
		DisableStartupMessage: true,
		EnablePrintRoutes:     c.Server.PrintRoutes,
		BodyLimit:             c.Upload.MaxRequestBytes(),
		ReadTimeout:           time.Duration(c.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:          time.Duration(c.Server.WriteTimeoutSeconds) * time.Second,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Static("/static", "./public")
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	metrics.RegisterRoutes(app, services.Metrics)

	requireSession := auth.RequireSession(services.Auth)
	auth.RegisterRoutes(app, auth.NewHandler(services.Auth, c.AppName), auth.RateLimit{
		Max:    c.Auth.LoginRateLimit.Max,
		Window: time.Duration(c.Auth.LoginRateLimit.WindowSeconds) * time.Second,
	})
	ui.RegisterRoutes(app, ui.NewHandler(c.AppName, c.Upload.MaxSizeMB), requireSession)

	api := app.Group("/api", requireSession)
	uploading.RegisterRoutes(api, services.Uploading, int64(c.Upload.MaxCoverMB)*1024*1024)
	catalog.RegisterRoutes(api, services.Catalog)
	config.RegisterRoutes(api, cfg)

	return &Server{app: app, port: c.Server.Port}
}

// errorHandler keeps fiber's own status codes and turns everything else into a 500.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	message := err.Error()
	if code >= fiber.StatusInternalServerError {
		slog.Error("Internal Server Error", "path", c.Path(), "error", err)
		message = "internal server error"
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
	return c.Status(code).SendString(message)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
