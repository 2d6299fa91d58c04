package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepool/internal/lru"
	"gopkg.in/yaml.v3"
)

// ErrInvalidMaxConnections reports a pool capacity below one.
var ErrInvalidMaxConnections = fmt.Errorf("invalid max_connections: %w", lru.ErrInvalidCapacity)

// Config holds application configuration
type Config struct {
	LogLevel       logrus.Level  `yaml:"log_level" default:"4"`
	MaxConnections int           `yaml:"max_connections" default:"7"` // pool capacity
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	OutputFormat   string        `yaml:"output_format" default:"table"` // table, json
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. A missing file is not an error
// when path is empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at pool creation.
func (c *Config) Validate() error {
	if c.MaxConnections < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxConnections, c.MaxConnections)
	}
	switch c.OutputFormat {
	case "table", "json":
	default:
		return errors.New("invalid output_format '" + c.OutputFormat + "': must be one of [table json]")
	}
	return nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
