// Package pipeline implements the load loop shared by the file, URL and memory backends.
//
// A backend only has to say how the bytes of one item are obtained (an Opener); the pipeline
// takes care of ordering the lifecycle hooks, zip expansion, decoding, progress and abort.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/decode"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// Opener reads the bytes of one item.
type Opener func(ctx context.Context, item domain.Item, opts domain.RequestOptions) ([]byte, error)

// Pipeline implements ports.Backend on top of an Opener.
type Pipeline struct {
	name      string
	open      Opener
	decoder   ports.Decoder
	logger    *slog.Logger
	expandZip bool

	mu      sync.Mutex
	charset string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDecoder replaces the default decoder.
func WithDecoder(d ports.Decoder) Option {
	return func(p *Pipeline) {
		p.decoder = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithZipExpansion makes the pipeline load every entry of a .zip item.
func WithZipExpansion(expand bool) Option {
	return func(p *Pipeline) {
		p.expandZip = expand
	}
}

// New creates a Pipeline named name (reported as the loader of load-item-start events).
func New(name string, open Opener, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:    name,
		open:    open,
		decoder: decode.New(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend name.
func (p *Pipeline) Name() string {
	return p.name
}

// SetDefaultCharacterSet sets the character set handed to the decoder.
func (p *Pipeline) SetDefaultCharacterSet(charset string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charset = charset
}

// Load starts loading items on a new goroutine and returns immediately.
func (p *Pipeline) Load(items []domain.Item, opts domain.RequestOptions, hooks ports.Hooks) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		p.logger.Warn("load requested while busy", "backend", p.name)
		go func() {
			callError(hooks, domain.ErrLoadInProgress)
			callEnd(hooks)
		}()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	charset := p.charset
	p.mu.Unlock()

	p.logger.Debug("load started", "backend", p.name, "items", len(items))
	go p.run(ctx, items, opts, hooks, charset, done)
}

// Abort cancels the running load. The returned channel is closed after OnLoadEnd has run.
func (p *Pipeline) Abort() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	p.cancel()
	return p.done
}

func (p *Pipeline) run(ctx context.Context, items []domain.Item, opts domain.RequestOptions, hooks ports.Hooks, charset string, done chan struct{}) {
	defer func() {
		callEnd(hooks)

		p.mu.Lock()
		if p.cancel != nil {
			p.cancel()
		}
		p.cancel = nil
		p.mu.Unlock()

		close(done)
		p.logger.Debug("load finished", "backend", p.name)
	}()

	total := len(items)
	for i, item := range items {
		if ctx.Err() != nil {
			callAbort(hooks)
			return
		}
		if hooks.OnLoadItemStart != nil {
			hooks.OnLoadItemStart(item, p.name)
		}

		raw, err := p.open(ctx, item, opts)
		if err != nil {
			if ctx.Err() != nil {
				callAbort(hooks)
				return
			}
			p.logger.Debug("item read failed", "backend", p.name, "item", item.Name, "err", err)
			callError(hooks, err)
			return
		}

		entries := []entry{{item: item, raw: raw}}
		if p.expandZip && IsZip(item.Name) {
			entries, err = unzip(item, raw)
			if err != nil {
				callError(hooks, err)
				return
			}
		}

		for _, e := range entries {
			if ctx.Err() != nil {
				callAbort(hooks)
				return
			}
			data, err := p.decoder.Decode(e.item, e.raw, charset)
			if ctx.Err() != nil {
				callAbort(hooks)
				return
			}
			if err != nil {
				callError(hooks, err)
				return
			}
			if hooks.OnLoad != nil {
				hooks.OnLoad(data)
			}
		}

		if ctx.Err() != nil {
			callAbort(hooks)
			return
		}
		if hooks.OnProgress != nil {
			hooks.OnProgress(domain.ProgressEvent{
				EventBase:        domain.EventBase{Type: domain.EventLoadProgress},
				LengthComputable: true,
				Loaded:           int64((i + 1) * 100 / total),
				Total:            100,
			})
		}
	}

	// an abort that arrived after the last item still ends as an abort
	if ctx.Err() != nil {
		callAbort(hooks)
	}
}

func callError(hooks ports.Hooks, err error) {
	if hooks.OnError != nil {
		hooks.OnError(err)
	}
}

func callAbort(hooks ports.Hooks) {
	if hooks.OnAbort != nil {
		hooks.OnAbort(domain.ErrAborted)
	}
}

func callEnd(hooks ports.Hooks) {
	if hooks.OnLoadEnd != nil {
		hooks.OnLoadEnd()
	}
}
