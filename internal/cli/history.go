package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/loadkit/internal/config"
	"github.com/aretw0/loadkit/internal/presentation/tui"
)

// HistoryOptions contains the configuration for the history command.
type HistoryOptions struct {
	Limit int
	JSON  bool
	Wrap  int
	Out   io.Writer
}

// RunHistory prints the journal, as JSON or as rendered markdown.
func RunHistory(ctx context.Context, cfg config.Config, logger *slog.Logger, opts HistoryOptions) error {
	journal, err := newJournal(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	if c, ok := journal.(io.Closer); ok {
		defer c.Close()
	}

	records, err := journal.List(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list journal: %w", err)
	}

	if opts.JSON {
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	render, err := tui.NewRenderer(opts.Wrap)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := render(tui.HistoryMarkdown(records))
	if err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	_, err = io.WriteString(opts.Out, out)
	return err
}
