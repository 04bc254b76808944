// Package config loads the CLI's YAML configuration: store location,
// engine limits, and logging. Missing fields fall back to defaults, so
// an empty file (or no file at all) yields a working configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calyxlab/calyx/internal/engine"
)

// Config is the engine and CLI configuration.
type Config struct {
	// StorePath is the SQLite database path. ":memory:" runs without
	// persistence.
	StorePath string `yaml:"store_path"`

	// MaxDepth bounds invocation tree nesting.
	MaxDepth int `yaml:"max_depth"`

	// MaxSteps bounds node executions per invocation tree.
	MaxSteps int `yaml:"max_steps"`

	// AllowReplyRequests controls whether reply handlers may schedule
	// sub-invocations. Pointer so an absent field means "default"
	// rather than false.
	AllowReplyRequests *bool `yaml:"allow_reply_requests"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		StorePath: "calyx.db",
		MaxDepth:  engine.DefaultMaxDepth,
		MaxSteps:  engine.DefaultMaxSteps,
		LogLevel:  "info",
	}
}

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over the defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration the engine would misbehave on.
func (c Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("config: store_path must not be empty")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("config: max_depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("config: max_steps must be at least 1, got %d", c.MaxSteps)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// ReplyRequestsAllowed resolves the tri-state field to its effective
// value (allowed unless explicitly disabled).
func (c Config) ReplyRequestsAllowed() bool {
	return c.AllowReplyRequests == nil || *c.AllowReplyRequests
}

// EngineOptions converts the configuration to engine options.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithMaxDepth(c.MaxDepth),
		engine.WithMaxSteps(c.MaxSteps),
		engine.WithReplyRequests(c.ReplyRequestsAllowed()),
	}
}

// SlogLevel parses LogLevel into a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log_level %q (want debug, info, warn, error)", c.LogLevel)
	}
}
