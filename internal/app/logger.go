package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/wattrewards/wattrewards/pkg/logger"
)

const serviceName = "wattrewards"

// ConfigureLogging builds the process logger from the server section.
// An empty level means info; an unknown level or format is a config error.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = zapcore.InfoLevel.String()
	}
	if _, err := zapcore.ParseLevel(level); err != nil {
		return fmt.Errorf("server.log_level: %w", err)
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "", "json", "console":
	default:
		return fmt.Errorf("server.log_format: unsupported format %q", cfg.LogFormat)
	}

	return logger.Configure(logger.Options{Level: level, Format: format, ServiceName: serviceName})
}
