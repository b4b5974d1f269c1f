package loadkit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/internal/runtime"
	"github.com/aretw0/loadkit/pkg/adapters/file"
	"github.com/aretw0/loadkit/pkg/adapters/memory"
	"github.com/aretw0/loadkit/pkg/adapters/url"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
	"github.com/aretw0/loadkit/pkg/relay"
	"github.com/google/uuid"
)

// journalTimeout bounds the write of one journal record.
const journalTimeout = 5 * time.Second

// Controller owns the load session, the cancellation hook and the event relay.
// It is safe for concurrent use. Only one image load may be active at a time.
type Controller struct {
	relay   *relay.Relay
	session runtime.Session

	factory    ports.BackendFactory
	decoder    ports.Decoder
	client     *http.Client
	fileRoot   string
	cancelHook ports.CancelHook
	journal    ports.JournalStore
	hooks      HostHooks
	logger     *slog.Logger
	charset    string
	newID      func() string
}

// Status describes the session of a Controller.
type Status struct {
	Loading        bool          `json:"loading"`
	LoadID         string        `json:"load_id,omitempty"`
	Source         domain.Source `json:"source,omitempty"`
	Items          int           `json:"items,omitempty"`
	Slices         int           `json:"slices,omitempty"`
	StartedAt      time.Time     `json:"started_at,omitzero"`
	MonoSlice      bool          `json:"mono_slice"`
	MonoSliceKnown bool          `json:"mono_slice_known"`
}

// New creates a Controller. Without options it uses the file, URL and memory backends,
// no cancellation hook and an in-memory journal.
func New(opts ...Option) *Controller {
	c := &Controller{
		relay:      relay.New(),
		cancelHook: ports.NopCancelHook,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.factory == nil {
		c.factory = c.builtinBackend
	}
	if c.journal == nil {
		c.journal = memory.NewStore()
	}
	return c
}

func (c *Controller) builtinBackend(source domain.Source) (ports.Backend, error) {
	switch source {
	case domain.SourceFiles:
		opts := []file.Option{file.WithDecoder(c.decoder), file.WithLogger(c.logger)}
		if c.fileRoot != "" {
			opts = append(opts, file.WithRoot(c.fileRoot))
		}
		return file.NewLoader(opts...), nil
	case domain.SourceURLs:
		opts := []url.Option{url.WithDecoder(c.decoder), url.WithLogger(c.logger)}
		if c.client != nil {
			opts = append(opts, url.WithClient(c.client))
		}
		return url.NewLoader(opts...), nil
	case domain.SourceMemory:
		return memory.NewLoader(memory.WithDecoder(c.decoder), memory.WithLogger(c.logger)), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedSource, source)
}

// AddEventListener registers fn for events of type t. Listeners run synchronously on the
// goroutine of the backend, in registration order.
func (c *Controller) AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID {
	return c.relay.Add(t, fn)
}

// RemoveEventListener unregisters a listener.
func (c *Controller) RemoveEventListener(t domain.EventType, id relay.ListenerID) {
	c.relay.Remove(t, id)
}

// IsMonoSliceData reports whether the last image dataset was judged single-slice.
// known is false until the first image load starts. State loads leave it unchanged.
func (c *Controller) IsMonoSliceData() (mono bool, known bool) {
	return c.session.MonoSlice()
}

// IsLoading reports whether an image load holds the session.
func (c *Controller) IsLoading() bool {
	return c.session.Active() != nil
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Status {
	mono, known := c.session.MonoSlice()
	st := Status{MonoSlice: mono, MonoSliceKnown: known}
	if l := c.session.Active(); l != nil {
		st.Loading = true
		st.LoadID = l.ID
		st.Source = l.Source
		st.Items = len(l.Items)
		st.Slices = l.Slices()
		st.StartedAt = l.StartedAt
	}
	return st
}

// FileRoot returns the directory file loads are confined to, or "" when they are not.
func (c *Controller) FileRoot() string {
	return c.fileRoot
}

// Journal returns the store finished loads are recorded in.
func (c *Controller) Journal() ports.JournalStore {
	return c.journal
}

// LoadFiles loads local files. A first path ending in .json is loaded as a saved state.
func (c *Controller) LoadFiles(ctx context.Context, paths []string) error {
	return c.load(ctx, domain.SourceFiles, domain.ItemsFromNames(paths), domain.RequestOptions{})
}

// LoadURLs loads remote items, forwarding headers with every request.
// A first URL ending in .json is loaded as a saved state.
func (c *Controller) LoadURLs(ctx context.Context, urls []string, headers []domain.Header) error {
	return c.load(ctx, domain.SourceURLs, domain.ItemsFromNames(urls), domain.RequestOptions{RequestHeaders: headers})
}

// LoadImageObject loads named in-memory buffers. They are always treated as image data.
func (c *Controller) LoadImageObject(ctx context.Context, buffers []domain.Item) error {
	if len(buffers) == 0 {
		return domain.ErrEmptyRequest
	}
	backend, err := c.factory(domain.SourceMemory)
	if err != nil {
		return err
	}
	return c.loadImage(ctx, domain.SourceMemory, buffers, backend, domain.RequestOptions{})
}

func (c *Controller) load(ctx context.Context, source domain.Source, items []domain.Item, opts domain.RequestOptions) error {
	kind, err := runtime.Classify(items)
	if err != nil {
		return err
	}
	backend, err := c.factory(source)
	if err != nil {
		return err
	}
	if kind == runtime.KindState {
		c.loadState(backend, items[0], opts)
		return nil
	}
	return c.loadImage(ctx, source, items, backend, opts)
}

func (c *Controller) loadImage(ctx context.Context, source domain.Source, items []domain.Item, backend ports.Backend, opts domain.RequestOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	load := runtime.NewLoad(c.newID(), source, items, backend)
	if err := c.session.Begin(load); err != nil {
		return err
	}
	logger := c.logger.With("load_id", load.ID)
	logger.Info("load started", "source", source, "items", len(items), "loader", backend.Name())

	if c.hooks.OnLoadImageDataSetup != nil {
		c.hooks.OnLoadImageDataSetup()
	}

	load.OnRelease(c.cancelHook.Install(func() { c.abortIfActive(load) }))

	mono := runtime.IsMonoSlice(items)
	c.session.SetMonoSlice(load, mono)
	logger.Debug("mono-slice computed", "mono_slice", mono)

	backend.SetDefaultCharacterSet(c.charset)
	hooks := c.imageHooks(load, logger)

	c.relay.Fire(domain.StartEvent{EventBase: domain.NewBase(domain.EventLoadStart, load.ID)})
	backend.Load(items, opts, hooks)

	stop := context.AfterFunc(ctx, func() { c.abortIfActive(load) })
	load.OnRelease(func() { stop() })

	// an abort requested before Load started found the backend idle
	if load.Aborted() {
		backend.Abort()
	}
	return nil
}

func (c *Controller) imageHooks(load *runtime.Load, logger *slog.Logger) ports.Hooks {
	return ports.Hooks{
		OnLoadItemStart: func(item domain.Item, loader string) {
			c.relay.Fire(domain.ItemStartEvent{
				EventBase: domain.NewBase(domain.EventLoadItemStart, load.ID),
				Item:      item,
				Loader:    loader,
			})
		},
		OnLoad: func(data *domain.Data) {
			if load.Aborted() {
				logger.Debug("slice dropped after abort", "item", data.Item.Name)
				return
			}
			load.AddSlice()
			c.relay.Fire(domain.SliceEvent{
				EventBase: domain.NewBase(domain.EventLoadSlice, load.ID),
				Data:      data.Info,
			})
			if c.hooks.OnLoad != nil {
				c.hooks.OnLoad(data)
			}
		},
		OnError: func(err error) {
			msg := runtime.LogError(logger, err)
			load.Fail(domain.OutcomeError, msg)
			c.relay.Fire(domain.ErrorEvent{
				EventBase: domain.NewBase(domain.EventLoadError, load.ID),
				Message:   msg,
				Err:       err,
			})
		},
		OnAbort: func(err error) {
			c.fireAbort(load, logger, err)
		},
		OnProgress: func(p domain.ProgressEvent) {
			if p.Type == "" {
				p.Type = domain.EventLoadProgress
			}
			if p.LoadID == "" {
				p.LoadID = load.ID
			}
			if p.Timestamp.IsZero() {
				p.Timestamp = time.Now()
			}
			c.relay.Fire(p)
		},
		OnLoadEnd: func() {
			c.endLoad(load, logger)
		},
	}
}

func (c *Controller) endLoad(load *runtime.Load, logger *slog.Logger) {
	if !load.End() {
		logger.Warn("duplicate load end ignored")
		return
	}
	// the backend finished before it noticed the abort
	if load.Aborted() && load.Outcome() == "" {
		c.fireAbort(load, logger, nil)
	}
	load.Release()
	rec := c.record(load, logger)

	c.relay.Fire(domain.ProgressEvent{
		EventBase:        domain.NewBase(domain.EventLoadProgress, load.ID),
		LengthComputable: true,
		Loaded:           100,
		Total:            100,
	})
	c.relay.Fire(domain.EndEvent{EventBase: domain.NewBase(domain.EventLoadEnd, load.ID), Record: rec})
	c.session.Clear(load)
	logger.Info("load finished", "outcome", rec.Outcome, "slices", rec.Slices, "duration", rec.Duration())

	if c.hooks.OnLoadEnd != nil {
		c.hooks.OnLoadEnd()
	}
}

func (c *Controller) fireAbort(load *runtime.Load, logger *slog.Logger, err error) {
	msg := runtime.LogAbort(logger, err)
	load.Fail(domain.OutcomeAbort, msg)
	c.relay.Fire(domain.AbortEvent{
		EventBase: domain.NewBase(domain.EventLoadAbort, load.ID),
		Message:   msg,
		Err:       err,
	})
}

// record journals the load before load-end is fired, so listeners of load-end can read it back.
func (c *Controller) record(load *runtime.Load, logger *slog.Logger) domain.LoadRecord {
	rec := load.Record(time.Now())
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := c.journal.Append(ctx, rec); err != nil {
		logger.Error("failed to journal load", "error", err)
	}
	return rec
}

func (c *Controller) loadState(backend ports.Backend, item domain.Item, opts domain.RequestOptions) {
	id := c.newID()
	logger := c.logger.With("load_id", id)
	logger.Info("state load started", "item", item.Name, "loader", backend.Name())

	backend.Load([]domain.Item{item}, opts, ports.Hooks{
		OnLoad: func(data *domain.Data) {
			if c.hooks.OnLoadStateData != nil {
				c.hooks.OnLoadStateData(data)
			}
		},
		OnError: func(err error) {
			c.relay.Fire(domain.ErrorEvent{
				EventBase: domain.NewBase(domain.EventLoadError, id),
				Message:   runtime.LogError(logger, err),
				Err:       err,
			})
		},
	})
}

// AbortLoad asks the active backend to stop and clears the session at once.
// The returned channel is closed once the backend has run its load end. When no load is
// active nothing happens and the channel is already closed.
func (c *Controller) AbortLoad() <-chan struct{} {
	load := c.session.Detach()
	if load == nil {
		return closed()
	}
	return c.abort(load)
}

func (c *Controller) abortIfActive(load *runtime.Load) {
	if c.session.Clear(load) {
		c.abort(load)
	}
}

func (c *Controller) abort(load *runtime.Load) <-chan struct{} {
	c.logger.Info("abort requested", "load_id", load.ID)
	load.MarkAborted()
	return load.Backend.Abort()
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
