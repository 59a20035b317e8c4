package config

import "time"

// Config holds the application configuration.
type Config struct {
	WatchPath       string   `yaml:"watch_path" validate:"required"`
	PollingInterval int      `yaml:"polling_interval" validate:"min=1"` // Seconds between cycles
	LogChanges      bool     `yaml:"log_changes"`
	Dispatch        Dispatch `yaml:"dispatch"`
	Notify          Notify   `yaml:"notify"`
	Logger          Logger   `yaml:"logger"`
	Server          Server   `yaml:"server"`
	HTTP            HTTP     `yaml:"http"`
	Watchers        Watchers `yaml:"watchers"`
}

// Dispatch holds the configuration for the watcher dispatch engine
type Dispatch struct {
	Workers        int `yaml:"workers" validate:"min=1"`
	HandlerTimeout int `yaml:"handler_timeout" validate:"min=0"` // Seconds, 0 disables
}

// Notify holds the configuration for the optional filesystem notification trigger
type Notify struct {
	Enabled        bool `yaml:"enabled"`
	DebounceMillis int  `yaml:"debounce_ms" validate:"min=0"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json logfmt"`
}

// Server hold the configuration for the Fiber status server
type Server struct {
	Enabled     bool   `yaml:"enabled"`
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port" validate:"required_if=Enabled true"`
}

// HTTP holds the configuration shared by every outbound HTTP client
type HTTP struct {
	UserAgent         string  `yaml:"user_agent"`
	Timeout           int     `yaml:"timeout" validate:"min=0"` // Seconds
	Retries           int     `yaml:"retries" validate:"min=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"` // 0 means unlimited
}

// Watchers holds the configuration of each watcher variant
type Watchers struct {
	Txt     TxtWatcher     `yaml:"txt"`
	JSON    JSONWatcher    `yaml:"json"`
	Jpg     JpgWatcher     `yaml:"jpg"`
	Zip     ZipWatcher     `yaml:"zip"`
	Replace ReplaceWatcher `yaml:"replace"`
}

type TxtWatcher struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"api_url" validate:"required_if=Enabled true,omitempty,url"`
	Marker  string `yaml:"marker" validate:"required_if=Enabled true"`
}

type JSONWatcher struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

type JpgWatcher struct {
	Enabled      bool `yaml:"enabled"`
	Quality      int  `yaml:"quality" validate:"min=1,max=100"`
	MaxDimension int  `yaml:"max_dimension" validate:"min=0"` // 0 keeps the original size
}

type ZipWatcher struct {
	Enabled bool `yaml:"enabled"`
}

type ReplaceWatcher struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"api_url" validate:"required_if=Enabled true,omitempty,url"`
}

// Interval returns the polling interval as a duration
func (c *Config) Interval() time.Duration {
	return time.Duration(c.PollingInterval) * time.Second
}

// HandlerTimeout returns the per-action timeout budget, zero when disabled
func (c *Config) HandlerTimeout() time.Duration {
	return time.Duration(c.Dispatch.HandlerTimeout) * time.Second
}

// NotifyDebounce returns the debounce delay of the notification trigger
func (c *Config) NotifyDebounce() time.Duration {
	return time.Duration(c.Notify.DebounceMillis) * time.Millisecond
}
