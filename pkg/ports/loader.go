package ports

import "github.com/aretw0/loadkit/pkg/domain"

// Hooks are the lifecycle callbacks a Backend reports through.
// Nil fields are skipped. A backend invokes them from a single goroutine, in order.
type Hooks struct {
	OnLoadItemStart func(item domain.Item, loader string)
	OnLoad          func(data *domain.Data)
	OnError         func(err error)
	OnAbort         func(err error)
	OnLoadEnd       func()
	OnProgress      func(p domain.ProgressEvent)
}

// Backend performs the asynchronous read/decode of a data source.
//
// Load returns immediately. For every call to Load the backend calls OnLoadEnd exactly once,
// after at most one of OnError or OnAbort (both are terminal for the request).
type Backend interface {
	// Name identifies the backend in load-item-start events (e.g. "files").
	Name() string

	// SetDefaultCharacterSet configures the character set used when an item does not declare one.
	SetDefaultCharacterSet(charset string)

	// Load starts loading the items.
	Load(items []domain.Item, opts domain.RequestOptions, hooks Hooks)

	// Abort requests the current load to stop. The returned channel is closed once OnLoadEnd
	// has run, or immediately when nothing is loading.
	Abort() <-chan struct{}
}

// Decoder turns the bytes of one item into Data.
type Decoder interface {
	Decode(item domain.Item, raw []byte, charset string) (*domain.Data, error)
}

// BackendFactory builds a fresh backend for a source kind.
type BackendFactory func(source domain.Source) (Backend, error)
