package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Manager gives read-only access to the application configuration.
// The configuration is loaded once at startup and never mutated afterwards.
type Manager struct {
	config *Config
}

// NewManager creates a new ConfigManager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// EnsureDirectories creates the upload directory if it doesn't exist.
func (m *Manager) EnsureDirectories() error {
	cfg := m.Get()
	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadDir, err)
	}
	slog.Info("Required directories created/verified", "uploads", cfg.UploadDir)
	return nil
}

// redactedCfg gets a redacted copy of the Config
func (m *Manager) redactedCfg() Config {
	cfgCpy := *m.Get()
	if cfgCpy.Auth.Password != "" {
		cfgCpy.Auth.Password = redacted
	}
	if cfgCpy.Auth.PasswordHash != "" {
		cfgCpy.Auth.PasswordHash = redacted
	}
	cfgCpy.Auth.SessionSecret = redacted
	if cfgCpy.Navidrome.Password != "" {
		cfgCpy.Navidrome.Password = redacted
	}
	if cfgCpy.SFTP.Password != "" {
		cfgCpy.SFTP.Password = redacted
	}
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func (m *Manager) GetYAML() string {
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
