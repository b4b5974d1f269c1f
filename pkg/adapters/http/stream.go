package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/relay"
)

// Message is one encoded event on its way to SSE clients.
type Message struct {
	Type domain.EventType
	Data []byte
}

// EventSource is where a StreamManager listens.
type EventSource interface {
	AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	logger      *slog.Logger
	scrub       func(string) string
}

// NewStreamManager creates an empty StreamManager. scrub masks credentials in item names
// and messages before they leave the process; nil leaves them as they are.
func NewStreamManager(logger *slog.Logger, scrub func(string) string) *StreamManager {
	if scrub == nil {
		scrub = func(s string) string { return s }
	}
	return &StreamManager{
		subscribers: make(map[chan Message]struct{}),
		logger:      logger,
		scrub:       scrub,
	}
}

// Attach broadcasts every event of src.
func (sm *StreamManager) Attach(src EventSource) {
	for _, t := range domain.EventTypes {
		src.AddEventListener(t, sm.Publish)
	}
}

// Publish encodes e and broadcasts it. Buffer contents are never sent.
func (sm *StreamManager) Publish(e domain.Event) {
	data, err := json.Marshal(sm.sanitize(e))
	if err != nil {
		sm.logger.Error("StreamManager: cannot encode event", "type", e.EventType(), "error", err)
		return
	}
	sm.Broadcast(Message{Type: e.EventType(), Data: data})
}

func (sm *StreamManager) sanitize(e domain.Event) domain.Event {
	switch ev := e.(type) {
	case domain.ItemStartEvent:
		ev.Item = domain.Item{Name: sm.scrub(ev.Item.Name), Filename: ev.Item.Filename}
		return ev
	case domain.SliceEvent:
		ev.Data.Name = sm.scrub(ev.Data.Name)
		ev.Data.Source = sm.scrub(ev.Data.Source)
		return ev
	case domain.ErrorEvent:
		ev.Message = sm.scrub(ev.Message)
		return ev
	case domain.AbortEvent:
		ev.Message = sm.scrub(ev.Message)
		return ev
	}
	return e
}

// Subscribe registers a client. The returned function unregisters it.
func (sm *StreamManager) Subscribe() (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 64)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every client without blocking.
func (sm *StreamManager) Broadcast(msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "type", msg.Type)
		}
	}
}

// Count returns the number of connected clients.
func (sm *StreamManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}
