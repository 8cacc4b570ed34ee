package logger

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig describes how log lines are encoded and where they go.
// OutputFile is "stdout", "stderr" or a file path; file output is mirrored
// to stdout.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

// ConfigFrom normalizes settings coming from the service configuration.
// Empty values fall back to info, json and stdout.
func ConfigFrom(level, format, output string) *LoggerConfig {
	cfg := &LoggerConfig{
		Level:      strings.ToLower(strings.TrimSpace(level)),
		Format:     strings.ToLower(strings.TrimSpace(format)),
		OutputFile: strings.TrimSpace(output),
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = "stdout"
	}
	return cfg
}

// DefaultConfig is used before the service configuration has been loaded.
func DefaultConfig() *LoggerConfig {
	return ConfigFrom(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("LOG_OUTPUT_FILE"))
}

// ToZapLevel parses Level, treating unknown names as info.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	name := c.Level
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c *LoggerConfig) console() bool {
	return c.Format == "console" || c.Format == "text"
}
