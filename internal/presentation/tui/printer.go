package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/loadkit/pkg/decode"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/relay"
	"github.com/muesli/termenv"
)

// EventSource is where a Printer listens.
type EventSource interface {
	AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID
}

// Printer writes one line per relay event.
// Lines end in "\r\n" since the terminal may be in raw mode while a load runs.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	p       termenv.Profile
	percent int64
}

// NewPrinter creates a Printer writing to w with colours for p.
func NewPrinter(w io.Writer, p termenv.Profile) *Printer {
	return &Printer{w: w, p: p, percent: -1}
}

// Attach prints every event of src.
func (pr *Printer) Attach(src EventSource) {
	for _, t := range domain.EventTypes {
		src.AddEventListener(t, pr.Print)
	}
}

// Print writes e.
func (pr *Printer) Print(e domain.Event) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	switch ev := e.(type) {
	case domain.StartEvent:
		pr.percent = -1
		pr.line(pr.p.String("▶ load "+shortID(ev.LoadID)).Bold().String(), "started")
	case domain.ItemStartEvent:
		pr.line("  reading", decode.DisplayName(ev.Item), pr.faint("("+ev.Loader+")"))
	case domain.SliceEvent:
		pr.line("  "+pr.color("✓", "#22c55e"), ev.Data.Name, describe(ev.Data))
	case domain.ProgressEvent:
		if !ev.LengthComputable || ev.Total <= 0 {
			return
		}
		pct := ev.Loaded * 100 / ev.Total
		if pct == pr.percent {
			return
		}
		pr.percent = pct
		pr.line(pr.faint(fmt.Sprintf("  %3d%%", pct)))
	case domain.ErrorEvent:
		pr.line(pr.color("✗ "+ev.Message, "#ef4444"))
	case domain.AbortEvent:
		pr.line(pr.color("■ "+ev.Message, "#f59e0b"))
	case domain.EndEvent:
		pr.line(pr.p.String("■ load "+shortID(ev.LoadID)).Bold().String(), "ended")
	}
}

func (pr *Printer) line(parts ...string) {
	for i, part := range parts {
		if i > 0 {
			io.WriteString(pr.w, " ")
		}
		io.WriteString(pr.w, part)
	}
	io.WriteString(pr.w, "\r\n")
}

func (pr *Printer) color(s, hex string) string {
	return pr.p.String(s).Foreground(pr.p.Color(hex)).String()
}

func (pr *Printer) faint(s string) string {
	return pr.p.String(s).Faint().String()
}

func describe(info domain.SliceInfo) string {
	s := info.Format
	if info.Width > 0 && info.Height > 0 {
		s += fmt.Sprintf(" %dx%d", info.Width, info.Height)
	}
	return s + fmt.Sprintf(" %s", humanBytes(info.Size))
}

func humanBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
