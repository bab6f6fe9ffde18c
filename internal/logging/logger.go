// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New returns a tint-backed logger writing to w. Source locations are added
// at debug level.
func New(level slog.Level, w io.Writer) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  level <= slog.LevelDebug,
	})
	return slog.New(handler)
}

// Init builds a logger with New and installs it as the slog default.
func Init(level slog.Level, w io.Writer) *slog.Logger {
	logger := New(level, w)
	slog.SetDefault(logger)
	return logger
}
