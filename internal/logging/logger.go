package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is more verbose than debug. slog has no trace level of its own.
const LevelTrace = slog.LevelDebug - 4

// Log formats accepted by NewLogger.
const (
	FormatText      = "text"
	FormatTextColor = "text-color"
	FormatJSON      = "json"
)

// ParseLevel converts a configured level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
}

// NewLogger builds the process logger writing to w. The level is read from
// levelVar on every record so it can be changed at runtime.
// FormatTextColor is accepted for compatibility and renders as plain text.
func NewLogger(w io.Writer, format string, levelVar *slog.LevelVar) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatText, FormatTextColor, "":
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %q", format)
	}

	return slog.New(handler), nil
}
