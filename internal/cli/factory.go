package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/config"
	"github.com/aretw0/loadkit/pkg/adapters/memory"
	"github.com/aretw0/loadkit/pkg/adapters/redis"
	"github.com/aretw0/loadkit/pkg/decode"
	"github.com/aretw0/loadkit/pkg/interrupt"
	"github.com/aretw0/loadkit/pkg/persistence/middleware"
	"github.com/aretw0/loadkit/pkg/ports"
)

// pingTimeout bounds the redis reachability check at startup.
const pingTimeout = 3 * time.Second

// RuntimeOptions selects the optional parts of a Runtime.
type RuntimeOptions struct {
	// Interactive installs the cancel hooks: SIGINT/SIGTERM, plus the cancel keys when
	// Stdin is a terminal and the config enables them. Servers leave it off.
	Interactive bool
	Stdin       io.Reader
	Extra       []loadkit.Option
}

// Runtime is a Controller with the resources it owns.
type Runtime struct {
	Controller *loadkit.Controller
	Journal    ports.JournalStore
	// Redactor masks credentials in URLs leaving the process.
	Redactor *middleware.Redactor
	closers  []func() error
}

// Close releases the resources of the runtime.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// NewRuntime initializes a Controller with standard CLI conventions.
func NewRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	rt := &Runtime{}

	journal, err := newJournal(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := journal.(io.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}
	rt.Journal = middleware.Chain(journal, middleware.NewRedactMiddleware(cfg.RedactParams))
	rt.Redactor = middleware.NewRedactor(cfg.RedactParams)

	ctlOpts := []loadkit.Option{
		loadkit.WithLogger(logger),
		loadkit.WithCharacterSet(cfg.CharacterSet),
		loadkit.WithDecoder(decode.New(decode.WithPreviewSize(cfg.ThumbnailSize))),
		loadkit.WithHTTPClient(&http.Client{Timeout: cfg.URLTimeout}),
		loadkit.WithJournal(rt.Journal),
	}
	if cfg.FileRoot != "" {
		ctlOpts = append(ctlOpts, loadkit.WithFileRoot(cfg.FileRoot))
	}
	if opts.Interactive {
		ctlOpts = append(ctlOpts, loadkit.WithCancelHook(cancelHook(cfg, opts.Stdin, logger)))
	}
	ctlOpts = append(ctlOpts, opts.Extra...)

	rt.Controller = loadkit.New(ctlOpts...)
	return rt, nil
}

// newJournal returns the redis journal when an address is configured, the in-memory one otherwise.
func newJournal(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (ports.JournalStore, error) {
	if cfg.Addr == "" {
		return memory.NewStore(), nil
	}

	store := redis.New(cfg.Addr, cfg.Password, cfg.DB, redis.WithPrefix(cfg.Prefix), redis.WithTTL(cfg.TTL))
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis journal at %s: %w", cfg.Addr, err)
	}
	logger.Debug("Using redis journal", "addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.Prefix)
	return store, nil
}

func cancelHook(cfg config.Config, stdin io.Reader, logger *slog.Logger) ports.CancelHook {
	hooks := []ports.CancelHook{interrupt.NewSignalHook()}
	if cfg.CancelKeys && stdin != nil {
		keys := interrupt.NewKeyHook(stdin, interrupt.WithKeyLogger(logger))
		if keys.IsTerminal() {
			hooks = append(hooks, keys)
		}
	}
	return interrupt.Multi(hooks...)
}
