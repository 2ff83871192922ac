package app

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates the process logger: JSON by default, the pretty
// handler for local development.
func NewLogger(level string, pretty bool) *slog.Logger {
	lvl := slog.LevelInfo

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var h slog.Handler
	if pretty {
		h = newPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}, true)
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     lvl,
			AddSource: true,
		})
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log
}
