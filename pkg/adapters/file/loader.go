// Package file provides the backend that reads local files.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aretw0/loadkit/internal/pipeline"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// LoaderName is reported as the loader of load-item-start events.
const LoaderName = "files"

var (
	// ErrOutsideRoot is returned for a name that is absolute or climbs out of the root.
	ErrOutsideRoot = errors.New("path escapes the file root")
	// ErrNoRoot is returned by Confined when file loads are not confined to a root.
	ErrNoRoot = errors.New("file loads are disabled: no file root configured")
)

// Loader implements ports.Backend for local file paths. Files named *.zip are expanded.
type Loader struct {
	*pipeline.Pipeline
}

// Option configures the Loader.
type Option func(*options)

type options struct {
	decoder ports.Decoder
	logger  *slog.Logger
	root    string
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

// WithRoot confines reads to a directory. Item names are then resolved relative to it and may
// not escape it.
func WithRoot(dir string) Option {
	return func(o *options) {
		o.root = dir
	}
}

// NewLoader creates a file backend.
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

	read := os.ReadFile
	if o.root != "" {
		fsys := os.DirFS(o.root)
		read = func(name string) ([]byte, error) {
			if err := CheckName(name); err != nil {
				return nil, err
			}
			return fs.ReadFile(fsys, rootRelative(name))
		}
	}
	return &Loader{Pipeline: pipeline.New(LoaderName, opener(read), popts...)}
}

// CheckName reports whether name can be read below a root: relative, and not
// climbing out of it once cleaned.
func CheckName(name string) error {
	if filepath.IsAbs(name) || !fs.ValidPath(rootRelative(name)) {
		return fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	return nil
}

// Confined checks names for a remote caller: file loads must be confined to root
// and every name must stay below it.
func Confined(root string, names []string) error {
	if root == "" {
		return ErrNoRoot
	}
	for _, name := range names {
		if err := CheckName(name); err != nil {
			return err
		}
	}
	return nil
}

func rootRelative(name string) string {
	return path.Clean(filepath.ToSlash(name))
}

func opener(read func(string) ([]byte, error)) pipeline.Opener {
	return func(ctx context.Context, item domain.Item, opts domain.RequestOptions) ([]byte, error) {
		raw, err := read(item.Name)
		if err != nil {
			switch {
			case errors.Is(err, ErrOutsideRoot):
				return nil, domain.NewLoadError("AccessError", err)
			case errors.Is(err, fs.ErrNotExist):
				return nil, domain.NewLoadError("NotFoundError", err)
			case errors.Is(err, fs.ErrInvalid):
				return nil, &domain.LoadError{Kind: "NotFoundError", Message: err.Error(), Err: domain.ErrUnsupportedSource}
			default:
				return nil, domain.NewLoadError("ReadError", err)
			}
		}
		return raw, nil
	}
}
