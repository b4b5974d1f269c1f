package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/loadkit/pkg/ports"
)

// SignalHook aborts the active load when the process receives one of its signals.
type SignalHook struct {
	signals []os.Signal
}

// NewSignalHook watches sigs, SIGINT and SIGTERM by default.
func NewSignalHook(sigs ...os.Signal) *SignalHook {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &SignalHook{signals: sigs}
}

// Install starts listening. Until the returned function is called the signals do not
// terminate the process.
func (h *SignalHook) Install(abort func()) ports.RestoreFunc {
	ctx, stop := signal.NotifyContext(context.Background(), h.signals...)
	released := make(chan struct{})

	go func() {
		<-ctx.Done()
		select {
		case <-released:
		default:
			abort()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(released)
			stop()
		})
	}
}
