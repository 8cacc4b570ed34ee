package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so packages can take a single concrete logging type.
type Logger struct {
	*zap.Logger
	config *LoggerConfig
}

// NewLogger builds a logger from the LOG_* environment variables.
func NewLogger() *Logger {
	return New(DefaultConfig())
}

// New builds a logger from an explicit configuration.
func New(cfg *LoggerConfig) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var zapConfig zap.Config
	if cfg.Level == "debug" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.ToZapLevel())

	switch cfg.OutputFile {
	case "", "stdout", "stderr":
		out := cfg.OutputFile
		if out == "" {
			out = "stdout"
		}
		zapConfig.OutputPaths = []string{out}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		logDir := filepath.Dir(cfg.OutputFile)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create log directory '%s', defaulting to stdout: %v\n", logDir, err)
			zapConfig.OutputPaths = []string{"stdout"}
			zapConfig.ErrorOutputPaths = []string{"stderr"}
		} else {
			zapConfig.OutputPaths = []string{cfg.OutputFile, "stdout"}
			zapConfig.ErrorOutputPaths = []string{cfg.OutputFile, "stderr"}
		}
	}

	if cfg.console() {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig.Encoding = "json"
	}

	zl, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing zap logger: %v. Falling back to basic logger.\n", err)
		zl, _ = zap.NewProduction()
	}

	l := &Logger{Logger: zl, config: cfg}
	l.Debug("Logger initialized",
		zap.String("level", cfg.Level),
		zap.String("format", cfg.Format),
		zap.Strings("output_paths", zapConfig.OutputPaths))
	return l
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), config: &LoggerConfig{Level: "info", Format: "json"}}
}

// Named adds a new path segment to the logger's name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}

// With adds structured context to the logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}
