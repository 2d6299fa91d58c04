package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepool/internal/lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 7, cfg.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			logLevel: logrus.DebugLevel,
		},
		{
			name:     "creates logger with info level",
			logLevel: logrus.InfoLevel,
		},
		{
			name:     "creates logger with warn level",
			logLevel: logrus.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel: tt.logLevel,
			}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.logLevel, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		errText string
	}{
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.MaxConnections = 0 },
			wantErr: lru.ErrInvalidCapacity,
		},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.MaxConnections = -1 },
			wantErr: ErrInvalidMaxConnections,
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.OutputFormat = "csv" },
			errText: "invalid output_format 'csv'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blepool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
log_level: debug
max_connections: 3
connect_timeout: 5s
`))
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
		assert.Equal(t, 3, cfg.MaxConnections)
		assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, "table", cfg.OutputFormat, "unset keys MUST keep defaults")
	})

	t.Run("invalid capacity is rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "max_connections: 0\n"))
		assert.ErrorIs(t, err, lru.ErrInvalidCapacity)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "max_connections: [\n"))
		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
