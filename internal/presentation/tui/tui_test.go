package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/relay"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relaySource adapts a *relay.Relay to the EventSource interface taken by Attach.
type relaySource struct{ *relay.Relay }

func (s relaySource) AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID {
	return s.Add(t, fn)
}

func TestPrinter_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, termenv.Ascii)
	r := relay.New()
	pr.Attach(relaySource{r})

	id := "0123456789abcdef"
	base := func(t domain.EventType) domain.EventBase { return domain.NewBase(t, id) }
	r.Fire(domain.StartEvent{EventBase: base(domain.EventLoadStart)})
	r.Fire(domain.ItemStartEvent{EventBase: base(domain.EventLoadItemStart), Item: domain.Item{Name: "/data/a.png"}, Loader: "files"})
	r.Fire(domain.SliceEvent{EventBase: base(domain.EventLoadSlice), Data: domain.SliceInfo{Name: "a.png", Format: "png", Width: 4, Height: 2, Size: 2048}})
	r.Fire(domain.ProgressEvent{EventBase: base(domain.EventLoadProgress), LengthComputable: true, Loaded: 100, Total: 100})
	// repeated percentages are printed once
	r.Fire(domain.ProgressEvent{EventBase: base(domain.EventLoadProgress), LengthComputable: true, Loaded: 100, Total: 100})
	r.Fire(domain.ErrorEvent{EventBase: base(domain.EventLoadError), Message: "NetworkError: boom"})
	r.Fire(domain.EndEvent{EventBase: base(domain.EventLoadEnd)})

	lines := strings.Split(strings.TrimSuffix(out.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 6, out.String())
	assert.Contains(t, lines[0], "load 01234567")
	assert.Contains(t, lines[1], "a.png")
	assert.Contains(t, lines[1], "(files)")
	assert.Contains(t, lines[2], "png 4x2 2.0 KiB")
	assert.Contains(t, lines[3], "100%")
	assert.Contains(t, lines[4], "NetworkError: boom")
	assert.Contains(t, lines[5], "ended")
}

func TestPrinter_SkipsUncomputableProgress(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, termenv.Ascii)
	pr.Print(domain.ProgressEvent{EventBase: domain.NewBase(domain.EventLoadProgress, "x"), Loaded: 3})
	assert.Empty(t, out.String())
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "12 B", humanBytes(12))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "3.0 MiB", humanBytes(3<<20))
}

func TestHistoryMarkdown(t *testing.T) {
	assert.Contains(t, HistoryMarkdown(nil), "No loads recorded")

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	md := HistoryMarkdown([]domain.LoadRecord{{
		ID:        "abcdef0123456789",
		Source:    domain.SourceURLs,
		Items:     2,
		First:     "https://pacs/a|b.dcm",
		Slices:    1,
		Outcome:   domain.OutcomeError,
		Message:   "HTTPError: 404",
		StartedAt: start,
		EndedAt:   start.Add(1500 * time.Millisecond),
	}})
	assert.Contains(t, md, "| `abcdef01` |")
	assert.Contains(t, md, `https://pacs/a\|b.dcm`)
	assert.Contains(t, md, "| error: HTTPError: 404 | 1.5s |")
	assert.Contains(t, md, "| 2 | 1 | no |")
}

func TestRenderer(t *testing.T) {
	render, err := NewRenderer(0)
	require.NoError(t, err)
	out, err := render("# Load history\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Load history")
}

func TestBanner(t *testing.T) {
	b := Banner(termenv.Ascii, "1.2.3\n")
	assert.Contains(t, b, "version 1.2.3")
	assert.Equal(t, len(bannerLines)+3, strings.Count(b, "\n"))
}
