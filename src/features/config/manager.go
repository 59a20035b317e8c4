package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
// The configuration is read once at startup and is not reloaded while the loop runs.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new Manager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// EnsureDirectories creates the watch directory if it doesn't exist and
// replaces the configured path with its canonical form.
func (m *Manager) EnsureDirectories() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.config

	if err := os.MkdirAll(cfg.WatchPath, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory %s: %w", cfg.WatchPath, err)
	}

	resolved, err := resolveWatchPath(cfg.WatchPath)
	if err != nil {
		return err
	}
	cfg.WatchPath = resolved

	slog.Info("Watch directory created/verified", "path", cfg.WatchPath)
	return nil
}

// redactedCfg gets a redacted copy of the Config
func (m *Manager) redactedCfg() Config {
	var cfgCpy = *m.config
	cfgCpy.Watchers.JSON.WebhookURL = redactURL(cfgCpy.Watchers.JSON.WebhookURL)
	return cfgCpy
}

// redactURL hides the password of URLs carrying credentials
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<redacted>"
	}
	return u.Redacted()
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func (m *Manager) GetYAML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
