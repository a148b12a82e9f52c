// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the shared application logger, set by Init.
var Logger *slog.Logger

// Init builds a JSON slog logger at the given level and installs it as both
// the package logger and the slog default.
func Init(serviceName, level string) *slog.Logger {
	logger := New(os.Stdout, serviceName, level)
	Logger = logger
	slog.SetDefault(logger)
	return logger
}

// New builds a JSON slog logger writing to output.
func New(output io.Writer, serviceName, level string) *slog.Logger {
	options := &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(lv.String()))}
				}
			}
			return a
		},
	}

	handler := slog.NewJSONHandler(output, options)
	return slog.New(handler).With("service", serviceName)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
