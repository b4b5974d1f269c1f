package interrupt

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHook_AbortOnCtrlX(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	h := NewKeyHook(r)
	assert.False(t, h.IsTerminal())

	aborted := make(chan struct{}, 1)
	restore := h.Install(func() { aborted <- struct{}{} })
	defer restore()

	_, err := w.Write([]byte{'a', KeyCtrlX})
	require.NoError(t, err)

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("cancel key was not handled")
	}
}

func TestKeyHook_RestorePreviousHandler(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	h := NewKeyHook(r, WithKeys('q'))

	var outer, inner atomic.Int32
	restoreOuter := h.Install(func() { outer.Add(1) })
	restoreInner := h.Install(func() { inner.Add(1) })

	w.Write([]byte{'q'})
	require.Eventually(t, func() bool { return inner.Load() == 1 }, time.Second, 5*time.Millisecond)
	restoreInner()
	restoreInner()

	w.Write([]byte{'q'})
	require.Eventually(t, func() bool { return outer.Load() == 1 }, time.Second, 5*time.Millisecond)
	restoreOuter()

	w.Write([]byte{'q', KeyCtrlX})
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, inner.Load())
	assert.EqualValues(t, 1, outer.Load())
}

func TestMulti(t *testing.T) {
	var order []string
	hook := func(name string) *recordingHook {
		return &recordingHook{name: name, order: &order}
	}
	a, b := hook("a"), hook("b")

	restore := Multi(a, nil, b).Install(func() {})
	assert.Equal(t, []string{"install a", "install b"}, order)

	restore()
	assert.Equal(t, []string{"install a", "install b", "restore b", "restore a"}, order)
}

type recordingHook struct {
	name  string
	order *[]string
}

func (h *recordingHook) Install(func()) ports.RestoreFunc {
	*h.order = append(*h.order, "install "+h.name)
	return func() { *h.order = append(*h.order, "restore "+h.name) }
}
