// Package relay is the event registry through which the controller publishes load events.
//
// Fire is synchronous: subscribers of a type are called on the caller's goroutine, in
// registration order. The subscriber list is snapshotted before calling out, so a
// subscriber may add or remove listeners (including itself) while being notified.
package relay

import (
	"sync"

	"github.com/aretw0/loadkit/pkg/domain"
)

// Listener receives relay events.
type Listener func(domain.Event)

// ListenerID identifies a registration for removal.
type ListenerID uint64

type subscription struct {
	id ListenerID
	fn Listener
}

// Relay maps event types to ordered listener lists.
type Relay struct {
	mu     sync.RWMutex
	nextID ListenerID
	subs   map[domain.EventType][]subscription
}

// New creates an empty Relay.
func New() *Relay {
	return &Relay{subs: make(map[domain.EventType][]subscription)}
}

// Add registers fn for events of type t.
func (r *Relay) Add(t domain.EventType, fn Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.subs[t] = append(r.subs[t], subscription{id: r.nextID, fn: fn})
	return r.nextID
}

// Remove unregisters a listener. Unknown IDs are ignored.
func (r *Relay) Remove(t domain.EventType, id ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[t]
	for i, s := range list {
		if s.id == id {
			// copy so snapshots held by in-flight Fire calls stay intact
			next := make([]subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(r.subs, t)
			} else {
				r.subs[t] = next
			}
			return
		}
	}
}

// Count returns the number of listeners of type t.
func (r *Relay) Count(t domain.EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[t])
}

// Fire calls every current listener of e's type.
func (r *Relay) Fire(e domain.Event) {
	r.mu.RLock()
	list := r.subs[e.EventType()]
	r.mu.RUnlock()

	for _, s := range list {
		s.fn(e)
	}
}
