package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// setFromEnv overrides dst with the value of envVar when it is set
func setFromEnv(dst *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies the supported environment variables on top of the file values.
func applyEnvOverrides(cfg *Config) error {
	setFromEnv(&cfg.UploadDir, "UPLOAD_DIR")
	setFromEnv(&cfg.Auth.Username, "APP_USER")
	setFromEnv(&cfg.Auth.Password, "APP_PASS")
	setFromEnv(&cfg.Auth.SessionSecret, "SECRET_KEY")
	setFromEnv(&cfg.Navidrome.URL, "NAVIDROME_URL")
	setFromEnv(&cfg.Navidrome.Username, "NAVIDROME_USER")
	setFromEnv(&cfg.Navidrome.Password, "NAVIDROME_PASS")
	setFromEnv(&cfg.SFTP.Host, "SFTP_HOST")
	setFromEnv(&cfg.SFTP.Username, "SFTP_USER")
	setFromEnv(&cfg.SFTP.Password, "SFTP_PASS")
	if p := os.Getenv("SFTP_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid SFTP_PORT %q: %w", p, err)
		}
		cfg.SFTP.Port = port
	}
	return nil
}

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Manager, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		cfg = createDefaultConfig()
		if err := saveDefaultConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		slog.Info("Default configuration created successfully", "path", path)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		// Start from defaults so omitted keys keep sane values.
		cfg = createDefaultConfig()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.SessionSecret == publishedSecret {
		return nil, errors.New("auth.session_secret still has the published default value, set a random secret or SECRET_KEY")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	manager := NewManager(cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}
	return manager, nil
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
