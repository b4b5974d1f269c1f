package tests

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// Recorder collects backend callbacks in order.
type Recorder struct {
	mu     sync.Mutex
	Calls  []string
	Slices []*domain.Data
	Errors []error
	Aborts []error
	done   chan struct{}
	once   sync.Once
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{done: make(chan struct{})}
}

// Hooks returns hooks that record into r.
func (r *Recorder) Hooks() ports.Hooks {
	return ports.Hooks{
		OnLoadItemStart: func(item domain.Item, loader string) { r.add("item-start") },
		OnLoad: func(data *domain.Data) {
			r.mu.Lock()
			r.Slices = append(r.Slices, data)
			r.mu.Unlock()
			r.add("load")
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.Errors = append(r.Errors, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnAbort: func(err error) {
			r.mu.Lock()
			r.Aborts = append(r.Aborts, err)
			r.mu.Unlock()
			r.add("abort")
		},
		OnProgress: func(p domain.ProgressEvent) { r.add("progress") },
		OnLoadEnd: func() {
			r.add("end")
			r.once.Do(func() { close(r.done) })
		},
	}
}

func (r *Recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
}

// Wait blocks until OnLoadEnd was called or the timeout expires.
func (r *Recorder) Wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("backend did not call OnLoadEnd within %s", timeout)
	}
}

// Count returns how many times call was recorded.
func (r *Recorder) Count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Last returns the last recorded call.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return ""
	}
	return r.Calls[len(r.Calls)-1]
}

// BackendContractTest is a reusable test suite that verifies if an adapter complies with ports.Backend.
// items must load successfully and produce wantSlices OnLoad calls; missing must fail.
func BackendContractTest(t *testing.T, newBackend func() ports.Backend, items []domain.Item, wantSlices int, missing domain.Item) {
	t.Helper()

	t.Run("Load_Success", func(t *testing.T) {
		rec := NewRecorder()
		b := newBackend()
		b.Load(items, domain.RequestOptions{}, rec.Hooks())
		rec.Wait(t, 5*time.Second)

		if got := rec.Count("item-start"); got < len(items) {
			t.Errorf("expected at least %d item starts, got %d", len(items), got)
		}
		if got := rec.Count("load"); got != wantSlices {
			t.Errorf("expected %d OnLoad calls, got %d", wantSlices, got)
		}
		if got := rec.Count("end"); got != 1 {
			t.Errorf("expected exactly one OnLoadEnd, got %d", got)
		}
		if rec.Last() != "end" {
			t.Errorf("OnLoadEnd must be the last callback, got %q", rec.Last())
		}
		if rec.Count("error")+rec.Count("abort") != 0 {
			t.Errorf("unexpected terminal failure: %v %v", rec.Errors, rec.Aborts)
		}
	})

	t.Run("Load_Error", func(t *testing.T) {
		rec := NewRecorder()
		b := newBackend()
		b.Load([]domain.Item{missing}, domain.RequestOptions{}, rec.Hooks())
		rec.Wait(t, 5*time.Second)

		if got := rec.Count("error"); got != 1 {
			t.Errorf("expected exactly one OnError, got %d", got)
		}
		if got := rec.Count("end"); got != 1 {
			t.Errorf("expected exactly one OnLoadEnd, got %d", got)
		}
	})

	t.Run("Abort_Idle", func(t *testing.T) {
		b := newBackend()
		select {
		case <-b.Abort():
		case <-time.After(time.Second):
			t.Fatal("Abort on an idle backend must return a closed channel")
		}
	})

	t.Run("Nil_Hooks", func(t *testing.T) {
		b := newBackend()
		b.Load(items, domain.RequestOptions{}, ports.Hooks{})
		select {
		case <-b.Abort():
		case <-time.After(5 * time.Second):
			t.Fatal("backend with nil hooks never finished")
		}
	})
}
