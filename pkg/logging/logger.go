// Package logging builds the structured loggers that are injected into the
// archive services, the HTTP server and the CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup returns a logger writing to w at the given level and format.
// It does not touch slog's process-wide default.
//
// Level values: "debug", "info", "warn", "error" (default "info").
// Format values: "text", "json" (default "text").
func Setup(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
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

// FromContext returns base enriched with the chi request ID carried by ctx,
// if any. A nil base discards output.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = Discard()
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return base.With("request_id", reqID)
	}
	return base
}
