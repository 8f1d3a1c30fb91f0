package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/correlation"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is treated as info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a correlation-aware logger writing to w.
// format: "json" or "text" (defaults to "text")
func New(w io.Writer, level, format, instanceID string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(correlation.NewHandler(handler))
	if instanceID != "" {
		logger = logger.With("instance_id", instanceID)
	}
	return logger
}

// Init installs a stdout logger as the slog default.
func Init(level, format, instanceID string) *slog.Logger {
	logger := New(os.Stdout, level, format, instanceID)
	slog.SetDefault(logger)
	return logger
}
