package interrupt

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/ports"
	"golang.org/x/term"
)

const (
	// KeyCtrlX is the cancel key of the viewer.
	KeyCtrlX byte = 0x18
	// KeyCtrlC reaches the hook instead of raising SIGINT while the terminal is raw.
	KeyCtrlC byte = 0x03
)

// KeyHook aborts the active load when a cancel key is read from its input.
//
// A single reader goroutine is started on the first Install and lives as long as the
// input. Install swaps the current handler and the returned function swaps the previous
// one back. When the input is a terminal it is switched to raw mode while a handler is
// installed, otherwise keys would only arrive after Enter.
type KeyHook struct {
	in     io.Reader
	fd     int
	isTerm bool
	keys   []byte
	logger *slog.Logger

	mu      sync.Mutex
	handler func()
	started bool
	state   *term.State
}

// KeyOption configures a KeyHook.
type KeyOption func(*KeyHook)

// WithKeys replaces the cancel keys.
func WithKeys(keys ...byte) KeyOption {
	return func(h *KeyHook) {
		h.keys = keys
	}
}

// WithKeyLogger configures the structured logger.
func WithKeyLogger(logger *slog.Logger) KeyOption {
	return func(h *KeyHook) {
		h.logger = logger
	}
}

// NewKeyHook reads keys from in (usually os.Stdin).
func NewKeyHook(in io.Reader, opts ...KeyOption) *KeyHook {
	h := &KeyHook{
		in:     in,
		keys:   []byte{KeyCtrlX, KeyCtrlC},
		logger: logging.NewNop(),
	}
	if f, ok := in.(*os.File); ok {
		h.fd = int(f.Fd())
		h.isTerm = term.IsTerminal(h.fd)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsTerminal reports whether the input is an interactive terminal.
func (h *KeyHook) IsTerminal() bool {
	return h.isTerm
}

// Install makes abort the current handler.
func (h *KeyHook) Install(abort func()) ports.RestoreFunc {
	h.mu.Lock()
	prev := h.handler
	h.handler = abort
	if !h.started {
		h.started = true
		go h.read()
	}
	if prev == nil && h.isTerm && h.state == nil {
		state, err := term.MakeRaw(h.fd)
		if err != nil {
			h.logger.Warn("cannot switch terminal to raw mode", "error", err)
		} else {
			h.state = state
		}
	}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.handler = prev
			if prev == nil && h.state != nil {
				if err := term.Restore(h.fd, h.state); err != nil {
					h.logger.Warn("cannot restore terminal", "error", err)
				}
				h.state = nil
			}
		})
	}
}

func (h *KeyHook) read() {
	buf := make([]byte, 1)
	for {
		n, err := h.in.Read(buf)
		if n == 1 && h.isKey(buf[0]) {
			h.mu.Lock()
			fn := h.handler
			h.mu.Unlock()
			if fn != nil {
				h.logger.Debug("cancel key pressed", "key", buf[0])
				fn()
			}
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("key reader stopped", "error", err)
			}
			return
		}
	}
}

func (h *KeyHook) isKey(b byte) bool {
	for _, k := range h.keys {
		if k == b {
			return true
		}
	}
	return false
}
