package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contre95/navidrop/src/features/auth"
	"github.com/contre95/navidrop/src/features/catalog"
	"github.com/contre95/navidrop/src/features/config"
	"github.com/contre95/navidrop/src/features/delivery"
	"github.com/contre95/navidrop/src/features/hosting"
	"github.com/contre95/navidrop/src/features/logging"
	"github.com/contre95/navidrop/src/features/metrics"
	"github.com/contre95/navidrop/src/features/uploading"
	"github.com/contre95/navidrop/src/infra/artwork"
	"github.com/contre95/navidrop/src/infra/files"
	"github.com/contre95/navidrop/src/infra/navidrome"
	"github.com/contre95/navidrop/src/infra/sftp"
	"github.com/contre95/navidrop/src/infra/tag"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "navidrop",
	Short:        "Upload MP3 albums, tag them and ship them to a Navidrome library.",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale staged uploads and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgManager, err := setup()
		if err != nil {
			return err
		}
		c := cfgManager.Get()
		store, err := files.NewTempStore(c.UploadDir, c.Upload.MaxSizeBytes())
		if err != nil {
			return err
		}
		removed := store.Sweep(time.Duration(c.Upload.StaleAfterSeconds) * time.Second)
		slog.Info("Sweep finished", "removed", removed, "dir", store.Root())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func setup() (*config.Manager, error) {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logging.SetupLogger(cfgManager))
	return cfgManager, nil
}

func serve() error {
	cfgManager, err := setup()
	if err != nil {
		return err
	}
	c := cfgManager.Get()
	m := metrics.New()

	store, err := files.NewTempStore(c.UploadDir, c.Upload.MaxSizeBytes())
	if err != nil {
		return err
	}
	artworkProcessor := artwork.NewProcessor(c.Artwork.MaxSize, c.Artwork.Quality)

	dialer := sftp.NewDialer(sftp.Options{
		Host:           c.SFTP.Host,
		Port:           c.SFTP.Port,
		Username:       c.SFTP.Username,
		Password:       c.SFTP.Password,
		PrivateKeyPath: c.SFTP.PrivateKeyPath,
		KnownHostsPath: c.SFTP.KnownHostsPath,
		Timeout:        time.Duration(c.SFTP.TimeoutSeconds) * time.Second,
		SessionTimeout: time.Duration(c.SFTP.SessionTimeoutSeconds) * time.Second,
	})
	deliveryClient := delivery.NewClient(dialer, c.SFTP.RemoteDir, c.SFTP.Asciify, m)

	uploadService := uploading.NewService(store, tag.NewTagReader(), tag.NewTagWriter(artworkProcessor), deliveryClient, m, uploading.Options{
		MaxSize:    c.Upload.MaxSizeBytes(),
		Workers:    c.Upload.Workers,
		StaleAfter: time.Duration(c.Upload.StaleAfterSeconds) * time.Second,
	})

	navidromeClient := navidrome.NewClient(navidrome.Options{
		URL:               c.Navidrome.URL,
		Username:          c.Navidrome.Username,
		Password:          c.Navidrome.Password,
		ClientName:        c.Navidrome.ClientName,
		Timeout:           time.Duration(c.Navidrome.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Navidrome.RequestsPerSecond,
	}, artworkProcessor)
	catalogService := catalog.NewService(navidromeClient, m)

	authService, err := auth.NewService(auth.Options{
		Username:     c.Auth.Username,
		Password:     c.Auth.Password,
		PasswordHash: c.Auth.PasswordHash,
		Secret:       c.Auth.SessionSecret,
		CookieName:   c.Auth.SessionCookie,
		MaxAge:       time.Duration(c.Auth.SessionMaxAge) * time.Second,
		SameSite:     c.Auth.SameSite,
		Secure:       c.Auth.HTTPSOnly,
	})
	if err != nil {
		return err
	}

	// Leftovers from a previous run.
	uploadService.Sweep()
	if c.Upload.SweepIntervalSeconds > 0 {
		sweeper := uploading.NewSweeper(uploadService, time.Duration(c.Upload.SweepIntervalSeconds)*time.Second)
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := hosting.NewServer(cfgManager, hosting.Services{
		Auth:      authService,
		Uploading: uploadService,
		Catalog:   catalogService,
		Metrics:   m,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", c.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	slog.Info("Server gracefully shut down.")
	return nil
}
