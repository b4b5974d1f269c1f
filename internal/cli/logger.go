package cli

import (
	"log/slog"

	"github.com/aretw0/loadkit/internal/config"
	"github.com/aretw0/loadkit/internal/logging"
)

// NewLogger configures the application logger.
// Interactive commands stay silent unless debugging so logs do not interleave with the
// event printer. Servers always log at the configured level.
func NewLogger(cfg config.Config, interactive bool) *slog.Logger {
	if interactive && !cfg.Debug {
		return logging.NewNop()
	}
	return logging.New(cfg.Level())
}
