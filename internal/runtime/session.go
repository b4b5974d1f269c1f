package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// Load is the bookkeeping of one image load.
type Load struct {
	ID        string
	Source    domain.Source
	Items     []domain.Item
	Backend   ports.Backend
	StartedAt time.Time

	monoSlice atomic.Bool
	slices    atomic.Int64
	aborted   atomic.Bool
	ended     atomic.Bool

	mu       sync.Mutex
	release  []func()
	released bool
	outcome  domain.Outcome
	message  string
}

// NewLoad creates the bookkeeping for a load about to start.
func NewLoad(id string, source domain.Source, items []domain.Item, backend ports.Backend) *Load {
	return &Load{
		ID:        id,
		Source:    source,
		Items:     items,
		Backend:   backend,
		StartedAt: time.Now(),
	}
}

// MonoSlice returns the heuristic computed for this load.
func (l *Load) MonoSlice() bool { return l.monoSlice.Load() }

// MarkAborted records that an abort was requested. Slices arriving afterwards are dropped.
func (l *Load) MarkAborted() { l.aborted.Store(true) }

// Aborted reports whether an abort was requested.
func (l *Load) Aborted() bool { return l.aborted.Load() }

// AddSlice counts a delivered slice.
func (l *Load) AddSlice() { l.slices.Add(1) }

// Slices returns the number of delivered slices.
func (l *Load) Slices() int { return int(l.slices.Load()) }

// End marks the load as ended. It returns false when the load had already ended.
func (l *Load) End() bool { return l.ended.CompareAndSwap(false, true) }

// Fail records a terminal error or abort. The first one wins.
func (l *Load) Fail(outcome domain.Outcome, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.outcome == "" {
		l.outcome = outcome
		l.message = message
	}
}

// Outcome returns the terminal outcome recorded by Fail, or "" while none was.
func (l *Load) Outcome() domain.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcome
}

// Record builds the journal entry of the load.
func (l *Load) Record(endedAt time.Time) domain.LoadRecord {
	l.mu.Lock()
	outcome, message := l.outcome, l.message
	l.mu.Unlock()
	if outcome == "" {
		outcome = domain.OutcomeSuccess
	}
	first := ""
	if len(l.Items) > 0 {
		first = l.Items[0].Name
	}
	return domain.LoadRecord{
		ID:        l.ID,
		Source:    l.Source,
		Items:     len(l.Items),
		First:     first,
		MonoSlice: l.MonoSlice(),
		Slices:    l.Slices(),
		Outcome:   outcome,
		Message:   message,
		StartedAt: l.StartedAt,
		EndedAt:   endedAt,
	}
}

// OnRelease registers a function undoing part of the cancellation wiring of the load.
// Once the load was released fn runs immediately.
func (l *Load) OnRelease(fn func()) {
	l.mu.Lock()
	if !l.released {
		l.release = append(l.release, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	fn()
}

// Release runs the registered functions once, most recent first.
func (l *Load) Release() {
	l.mu.Lock()
	fns := l.release
	l.release = nil
	l.released = true
	l.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Session holds the single active-load slot and the mono-slice flag of the last
// image load. The flag survives the end of its load and is only replaced by the
// next image load.
type Session struct {
	mu        sync.Mutex
	active    *Load
	monoSlice bool
	monoKnown bool
}

// Begin makes l the active load. It fails with domain.ErrLoadInProgress when the slot is taken.
func (s *Session) Begin(l *Load) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return domain.ErrLoadInProgress
	}
	s.active = l
	return nil
}

// SetMonoSlice stores the heuristic for l.
func (s *Session) SetMonoSlice(l *Load, mono bool) {
	l.monoSlice.Store(mono)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monoSlice = mono
	s.monoKnown = true
}

// MonoSlice returns the flag of the last image load and whether one has started yet.
func (s *Session) MonoSlice() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monoSlice, s.monoKnown
}

// Active returns the active load or nil.
func (s *Session) Active() *Load {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Detach clears the slot and returns what it held.
func (s *Session) Detach() *Load {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.active
	s.active = nil
	return l
}

// Clear empties the slot if it still holds l. Clearing twice is harmless.
func (s *Session) Clear(l *Load) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != l {
		return false
	}
	s.active = nil
	return true
}
