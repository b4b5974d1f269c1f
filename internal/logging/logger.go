// Package logging builds the slog loggers shared by the loadkit binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger on stderr, leaving stdout to event lines and JSON-RPC.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, options(level)))
}

// NewJSON returns a JSON logger on w, for output collected by log pipelines.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, options(level)))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func options(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// "error" -> "err"
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}
