// Package config handles runtime configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all runtime settings.
type Config struct {
	Window  WindowConfig  `yaml:"window" envPrefix:"WINDOW_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Model   ModelConfig   `yaml:"model" envPrefix:"MODEL_"`
	Engine  EngineConfig  `yaml:"engine" envPrefix:"ENGINE_"`
	Loop    LoopConfig    `yaml:"loop" envPrefix:"LOOP_"`
	Queue   QueueConfig   `yaml:"queue" envPrefix:"QUEUE_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title" env:"TITLE"`
	Width      int    `yaml:"width" env:"WIDTH"`
	Height     int    `yaml:"height" env:"HEIGHT"`
	Fullscreen bool   `yaml:"fullscreen" env:"FULLSCREEN"`
	VSync      bool   `yaml:"vsync" env:"VSYNC"`
	// ScreenshotDir receives F12 captures.
	ScreenshotDir string `yaml:"screenshot_dir" env:"SCREENSHOT_DIR"`
}

// ServerConfig holds control server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Listen  string `yaml:"listen" env:"LISTEN"`
	// RateLimit is requests per second across all clients. Zero disables it.
	RateLimit         float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst             int           `yaml:"burst" env:"BURST"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
}

// ModelConfig holds asset locations.
type ModelConfig struct {
	// AssetRoots are searched last to first.
	AssetRoots []string `yaml:"asset_roots" env:"ASSET_ROOTS"`
	Default    string   `yaml:"default" env:"DEFAULT"`
	Cache      bool     `yaml:"cache" env:"CACHE"`
}

// EngineConfig holds animation engine settings.
type EngineConfig struct {
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL"`
	Suppress []string `yaml:"suppress" env:"SUPPRESS"`
}

// LoopConfig holds frame loop settings.
type LoopConfig struct {
	Step time.Duration `yaml:"step" env:"STEP"`
}

// QueueConfig holds command queue settings.
type QueueConfig struct {
	// MaxPending bounds the queue. Zero means unbounded.
	MaxPending int `yaml:"max_pending" env:"MAX_PENDING"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`
	LogFile string `yaml:"log_file" env:"FILE"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:         "puppet",
			Width:         800,
			Height:        800,
			VSync:         true,
			ScreenshotDir: "screenshots",
		},
		Server: ServerConfig{
			Enabled:           true,
			Listen:            "127.0.0.1:8080",
			Burst:             20,
			ShutdownTimeout:   5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Model: ModelConfig{
			AssetRoots: []string{"model"},
			Default:    "Hiyori",
			Cache:      true,
		},
		Engine: EngineConfig{
			LogLevel: "warning",
			Suppress: []string{"Live2D Cubism SDK Core Version"},
		},
		Loop: LoopConfig{
			Step: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings the runtime cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Loop.Step <= 0 {
		errs = append(errs, fmt.Errorf("loop step %v must be positive", c.Loop.Step))
	}
	if c.Queue.MaxPending < 0 {
		errs = append(errs, fmt.Errorf("queue max_pending %d must not be negative", c.Queue.MaxPending))
	}
	if c.Server.Enabled && c.Server.Listen == "" {
		errs = append(errs, errors.New("server enabled without a listen address"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server rate_limit %v must not be negative", c.Server.RateLimit))
	}
	if len(c.Model.AssetRoots) == 0 {
		errs = append(errs, errors.New("no asset roots configured"))
	}
	return errors.Join(errs...)
}
