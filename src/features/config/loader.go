package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := Default()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		return finalize(defaultCfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Missing keys keep their default values
	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return finalize(cfg)
}

// finalize applies environment overrides, validates the configuration and
// resolves the watch path.
func finalize(cfg *Config) (*Manager, error) {
	// Override with environment variables if set
	if watchPath := os.Getenv("FSWATCHER_WATCH_PATH"); watchPath != "" {
		cfg.WatchPath = watchPath
	}
	if webhook := os.Getenv("FSWATCHER_WEBHOOK_URL"); webhook != "" {
		cfg.Watchers.JSON.WebhookURL = webhook
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	manager := NewManager(cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Validate checks the struct tags of the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// resolveWatchPath turns the watch path into an absolute path without
// symlinks, so snapshot keys are canonical.
func resolveWatchPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve watch path %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve watch path %s: %w", abs, err)
	}
	return resolved, nil
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
