package memory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/loadkit/internal/pipeline"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// LoaderName is reported as the loader of load-item-start events.
const LoaderName = "memory"

// Loader implements ports.Backend for caller-supplied in-memory buffers.
type Loader struct {
	*pipeline.Pipeline
}

// Option configures the Loader.
type Option func(*options)

type options struct {
	decoder ports.Decoder
	logger  *slog.Logger
}

// WithDecoder replaces the default decoder.
func WithDecoder(d ports.Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewLoader creates a memory backend. Buffers named *.zip are expanded.
func NewLoader(opts ...Option) *Loader {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	popts := []pipeline.Option{pipeline.WithZipExpansion(true)}
	if o.decoder != nil {
		popts = append(popts, pipeline.WithDecoder(o.decoder))
	}
	if o.logger != nil {
		popts = append(popts, pipeline.WithLogger(o.logger))
	}
	return &Loader{Pipeline: pipeline.New(LoaderName, readBuffer, popts...)}
}

func readBuffer(ctx context.Context, item domain.Item, opts domain.RequestOptions) ([]byte, error) {
	if len(item.Data) == 0 {
		return nil, &domain.LoadError{
			Kind:    "EmptyBufferError",
			Message: "no data for buffer " + item.Name,
			Err:     domain.ErrUnsupportedSource,
		}
	}
	if ctx.Err() != nil {
		return nil, errors.Join(domain.ErrAborted, ctx.Err())
	}
	return item.Data, nil
}
