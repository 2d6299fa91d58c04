package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blepool/pkg/config"
)

// loadConfig reads --config and applies the global flag overrides on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("max-connections") {
		cfg.MaxConnections, _ = cmd.Flags().GetInt("max-connections")
	}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.OutputFormat = format
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogger creates a logger for cfg, with --log-level taking precedence
// over the configured level.
// Returns an error if the log-level is invalid.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	if logLevelStr != "" {
		switch logLevelStr {
		case "debug":
			cfg.LogLevel = logrus.DebugLevel
		case "info":
			cfg.LogLevel = logrus.InfoLevel
		case "warn":
			cfg.LogLevel = logrus.WarnLevel
		case "error":
			cfg.LogLevel = logrus.ErrorLevel
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}
