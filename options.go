package loadkit

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// HostHooks are called by the Controller for an embedding host that needs the decoded
// payload directly rather than through events. Nil fields are skipped.
type HostHooks struct {
	// OnLoad receives every slice of an image load, after its load-slice event.
	OnLoad func(data *domain.Data)
	// OnLoadEnd runs last, once the load has been cleared from the session.
	OnLoadEnd func()
	// OnLoadImageDataSetup runs before an image load starts.
	OnLoadImageDataSetup func()
	// OnLoadStateData receives the document of a state load.
	OnLoadStateData func(data *domain.Data)
}

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithCharacterSet sets the default character set handed to every backend.
func WithCharacterSet(charset string) Option {
	return func(c *Controller) {
		c.charset = charset
	}
}

// WithBackendFactory replaces the built-in file/url/memory backends.
func WithBackendFactory(f ports.BackendFactory) Option {
	return func(c *Controller) {
		c.factory = f
	}
}

// WithDecoder sets the decoder used by the built-in backends.
func WithDecoder(d ports.Decoder) Option {
	return func(c *Controller) {
		c.decoder = d
	}
}

// WithHTTPClient sets the client used by the built-in URL backend.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// WithFileRoot confines the built-in file backend to dir. Paths are then read relative to
// dir; absolute paths and paths climbing out of it fail with a load-error.
func WithFileRoot(dir string) Option {
	return func(c *Controller) {
		c.fileRoot = dir
	}
}

// WithCancelHook installs hook for the duration of every image load.
func WithCancelHook(hook ports.CancelHook) Option {
	return func(c *Controller) {
		c.cancelHook = hook
	}
}

// WithJournal records every finished image load in store.
func WithJournal(store ports.JournalStore) Option {
	return func(c *Controller) {
		c.journal = store
	}
}

// WithHostHooks registers the host callbacks.
func WithHostHooks(hooks HostHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithIDGenerator replaces the uuid load IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}
