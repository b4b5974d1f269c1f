// Package url provides the backend that fetches items over HTTP(S).
package url

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/loadkit/internal/pipeline"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// LoaderName is reported as the loader of load-item-start events.
const LoaderName = "urls"

// DefaultTimeout bounds a single item request.
const DefaultTimeout = 60 * time.Second

// DefaultMaxBytes bounds the size of a single item.
const DefaultMaxBytes = 1 << 30

// Loader implements ports.Backend for URLs. Request headers from RequestOptions are
// forwarded as is. Items named *.zip are expanded.
type Loader struct {
	*pipeline.Pipeline
}

// Option configures the Loader.
type Option func(*options)

type options struct {
	decoder  ports.Decoder
	logger   *slog.Logger
	client   *http.Client
	maxBytes int64
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

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithMaxBytes limits the size of one item.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// NewLoader creates a URL backend.
func NewLoader(opts ...Option) *Loader {
	o := options{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
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
	return &Loader{Pipeline: pipeline.New(LoaderName, fetcher(o.client, o.maxBytes), popts...)}
}

func fetcher(client *http.Client, maxBytes int64) pipeline.Opener {
	return func(ctx context.Context, item domain.Item, opts domain.RequestOptions) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Name, nil)
		if err != nil {
			return nil, &domain.LoadError{Kind: "URLError", Message: err.Error(), Err: domain.ErrUnsupportedSource}
		}
		for _, h := range opts.RequestHeaders {
			req.Header.Add(h.Name, h.Value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, domain.NewLoadError("NetworkError", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &domain.LoadError{
				Kind:    "HTTPError",
				Message: fmt.Sprintf("GET %s: %s", item.Name, resp.Status),
			}
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
		if err != nil {
			return nil, domain.NewLoadError("NetworkError", err)
		}
		if int64(len(raw)) > maxBytes {
			return nil, &domain.LoadError{
				Kind:    "SizeError",
				Message: fmt.Sprintf("%s is larger than %d bytes", item.Name, maxBytes),
			}
		}
		return raw, nil
	}
}
