// Package logger holds the process-wide zap logger used by every package of the
// moderation service.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger. It is a no-op logger until Init is called so that
// packages and tests never dereference a nil logger.
var Log = zap.NewNop()

// Init builds the shared logger. When logFile is set the production (JSON)
// configuration is used and output is duplicated to stdout.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Log = built
	return nil
}

// Named returns a child of the shared logger scoped to a component.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// Sync flushes buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
