// Package logs builds the slog loggers used across all binaries.
package logs

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromString maps a configuration value (debug, info, warn, error)
// to a text slog logger. Unknown values fall back to info.
func GetLoggerFromString(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return GetLoggerFromLevel(l)
}

func GetLoggerFromLevel(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
