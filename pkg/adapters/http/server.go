// Package http exposes a Controller over a small JSON API with a server-sent event stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/adapters/file"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/persistence/middleware"
	"github.com/aretw0/loadkit/pkg/ports"
	"github.com/aretw0/loadkit/pkg/relay"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultHistoryLimit caps GET /loads when no limit is given.
const DefaultHistoryLimit = 50

// Controller is the part of loadkit.Controller the API needs.
type Controller interface {
	LoadFiles(ctx context.Context, paths []string) error
	LoadURLs(ctx context.Context, urls []string, headers []domain.Header) error
	LoadImageObject(ctx context.Context, buffers []domain.Item) error
	AbortLoad() <-chan struct{}
	Status() loadkit.Status
	Journal() ports.JournalStore
	FileRoot() string
	AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID
	RemoveEventListener(t domain.EventType, id relay.ListenerID)
}

// LoadRequest is the body of POST /loads.
type LoadRequest struct {
	Source  domain.Source   `json:"source"`
	Items   []string        `json:"items"`
	Headers []domain.Header `json:"headers,omitempty"`
}

// ObjectRequest is the body of POST /loads/objects. Data is base64 in JSON.
type ObjectRequest struct {
	Items []domain.Item `json:"items"`
}

// AbortResponse is the body of DELETE /loads/current.
type AbortResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// Server serves the API of one Controller.
type Server struct {
	Controller Controller
	Streams    *StreamManager
	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	redactor   *middleware.Redactor
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRedactor masks credentials in the URLs streamed on /events.
// The default masks middleware.DefaultSensitiveParams.
func WithRedactor(r *middleware.Redactor) Option {
	return func(s *Server) {
		s.redactor = r
	}
}

// NewHandler creates the HTTP handler for ctl and starts relaying its events to SSE clients.
func NewHandler(ctl Controller, opts ...Option) http.Handler {
	s := &Server{
		Controller: ctl,
		logger:     logging.NewNop(),
		redactor:   middleware.NewRedactor(middleware.DefaultSensitiveParams),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger, s.redactor.Text)
	s.Streams.Attach(ctl)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Route("/loads", func(r chi.Router) {
		r.Get("/", s.ListLoads)
		r.Post("/", s.StartLoad)
		r.Post("/objects", s.StartObjectLoad)
		r.Get("/current", s.GetCurrent)
		r.Delete("/current", s.AbortCurrent)
		r.Get("/{id}", s.GetLoad)
	})
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartLoad handles POST /loads.
func (s *Server) StartLoad(w http.ResponseWriter, r *http.Request) {
	var body LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartLoad: Invalid request body", "error", err)
		return
	}

	// the load outlives the request
	ctx := context.WithoutCancel(r.Context())
	var err error
	switch body.Source {
	case domain.SourceFiles:
		// remote callers only reach files below the configured root
		if err = file.Confined(s.Controller.FileRoot(), body.Items); err == nil {
			err = s.Controller.LoadFiles(ctx, body.Items)
		}
	case domain.SourceURLs, "":
		err = s.Controller.LoadURLs(ctx, body.Items, body.Headers)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnsupportedSource, body.Source)
	}
	s.accepted(w, "StartLoad", err)
}

// StartObjectLoad handles POST /loads/objects.
func (s *Server) StartObjectLoad(w http.ResponseWriter, r *http.Request) {
	var body ObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartObjectLoad: Invalid request body", "error", err)
		return
	}
	err := s.Controller.LoadImageObject(context.WithoutCancel(r.Context()), body.Items)
	s.accepted(w, "StartObjectLoad", err)
}

func (s *Server) accepted(w http.ResponseWriter, op string, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrLoadInProgress):
			status = http.StatusConflict
		case errors.Is(err, file.ErrNoRoot):
			status = http.StatusForbidden
		case errors.Is(err, domain.ErrEmptyRequest), errors.Is(err, domain.ErrUnsupportedSource),
			errors.Is(err, file.ErrOutsideRoot):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		s.logger.Warn(op+": Load rejected", "error", err)
		return
	}
	writeJSON(w, s.logger, http.StatusAccepted, s.Controller.Status())
}

// GetCurrent handles GET /loads/current.
func (s *Server) GetCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.Controller.Status())
}

// AbortCurrent handles DELETE /loads/current. With ?wait=<duration> it waits for the
// backend to acknowledge.
func (s *Server) AbortCurrent(w http.ResponseWriter, r *http.Request) {
	ack := s.Controller.AbortLoad()

	var wait time.Duration
	if v := r.URL.Query().Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			http.Error(w, "Invalid wait duration", http.StatusBadRequest)
			return
		}
		wait = d
	}

	resp := AbortResponse{}
	select {
	case <-ack:
		resp.Acknowledged = true
	default:
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ack:
				resp.Acknowledged = true
			case <-timer.C:
			case <-r.Context().Done():
			}
		}
	}
	writeJSON(w, s.logger, http.StatusAccepted, resp)
}

// ListLoads handles GET /loads.
func (s *Server) ListLoads(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, err := s.Controller.Journal().List(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Journal error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ListLoads failed", "error", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

// GetLoad handles GET /loads/{id}.
func (s *Server) GetLoad(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Controller.Journal().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Journal error: %v", err), http.StatusInternalServerError)
		s.logger.Error("GetLoad failed", "error", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, rec)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     "loadkit-http",
		"version": strings.TrimSpace(loadkit.Version),
	})
}

// SubscribeEvents handles the GET /events request (SSE). ?types=load-slice,load-end filters
// the stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var filter map[domain.EventType]bool
	if v := r.URL.Query().Get("types"); v != "" {
		filter = make(map[domain.EventType]bool)
		for _, t := range strings.Split(v, ",") {
			filter[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[msg.Type] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
