package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/persistence/middleware"
	"github.com/aretw0/loadkit/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateBackend loads every item once release is closed.
type gateBackend struct {
	mu      sync.Mutex
	release chan struct{}
	abort   chan struct{}
	done    chan struct{}
	items   []domain.Item
	opts    domain.RequestOptions
}

func newGateBackend() *gateBackend {
	return &gateBackend{release: make(chan struct{}), abort: make(chan struct{}), done: make(chan struct{})}
}

func (b *gateBackend) Name() string { return "gate" }
func (b *gateBackend) SetDefaultCharacterSet(string) {}

func (b *gateBackend) Load(items []domain.Item, opts domain.RequestOptions, hooks ports.Hooks) {
	b.mu.Lock()
	b.items, b.opts = items, opts
	b.mu.Unlock()
	go func() {
		defer close(b.done)
		defer hooks.OnLoadEnd()
		select {
		case <-b.release:
			for _, item := range items {
				hooks.OnLoadItemStart(item, "gate")
				hooks.OnLoad(&domain.Data{Item: item, Info: domain.SliceInfo{Name: item.Name, Size: 3}})
			}
		case <-b.abort:
			hooks.OnAbort(nil)
		}
	}()
}

func (b *gateBackend) Abort() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.abort:
	default:
		close(b.abort)
	}
	return b.done
}

type fixture struct {
	ctl      *loadkit.Controller
	handler  http.Handler
	mu       sync.Mutex
	backends []*gateBackend
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{}
	f.ctl = loadkit.New(
		loadkit.WithBackendFactory(func(domain.Source) (ports.Backend, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			b := newGateBackend()
			f.backends = append(f.backends, b)
			return b, nil
		}),
		loadkit.WithFileRoot(t.TempDir()),
	)
	f.handler = NewHandler(f.ctl, opts...)
	return f
}

func (f *fixture) last() *gateBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backends[len(f.backends)-1]
}

func (f *fixture) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestStartLoad(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/loads", LoadRequest{
		Source:  domain.SourceURLs,
		Items:   []string{"https://pacs/a.dcm"},
		Headers: []domain.Header{{Name: "Authorization", Value: "Bearer t"}},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var st loadkit.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Loading)
	assert.True(t, st.MonoSlice)

	b := f.last()
	assert.Equal(t, "Bearer t", b.opts.RequestHeaders[0].Value)

	// a second load is rejected while the first runs
	w = f.do("POST", "/loads", LoadRequest{Source: domain.SourceFiles, Items: []string{"b.dcm"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	close(b.release)
	<-b.done
	assert.Eventually(t, func() bool { return !f.ctl.IsLoading() }, time.Second, 5*time.Millisecond)

	// the request context is gone but the load ran to completion
	w = f.do("GET", "/loads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []domain.LoadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, domain.OutcomeSuccess, records[0].Outcome)

	w = f.do("GET", "/loads/"+records[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do("GET", "/loads/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartLoad_BadRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/loads", LoadRequest{Source: domain.SourceFiles})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/loads", LoadRequest{Source: "ftp", Items: []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/loads", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = f.do("GET", "/loads?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartLoad_FileRoot(t *testing.T) {
	t.Run("Files are refused without a root", func(t *testing.T) {
		h := NewHandler(loadkit.New())
		req := httptest.NewRequest("POST", "/loads", strings.NewReader(`{"source":"files","items":["/etc/passwd"]}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	f := newFixture(t)
	for _, name := range []string{"../secret.dcm", "/etc/passwd", "series/../../secret.dcm"} {
		t.Run("Escaping the root is rejected: "+name, func(t *testing.T) {
			w := f.do("POST", "/loads", LoadRequest{Source: domain.SourceFiles, Items: []string{"a.dcm", name}})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "escapes the file root")
		})
	}
	assert.Empty(t, f.backends, "no load was started")
	assert.False(t, f.ctl.IsLoading())
}

func TestStartObjectLoad(t *testing.T) {
	f := newFixture(t)
	w := f.do("POST", "/loads/objects", ObjectRequest{Items: []domain.Item{
		{Name: "a", Filename: "a.dcm", Data: []byte("abc")},
	}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	b := f.last()
	require.Len(t, b.items, 1)
	assert.Equal(t, []byte("abc"), b.items[0].Data)
	close(b.release)
	<-b.done
}

func TestAbortCurrent(t *testing.T) {
	f := newFixture(t)

	w := f.do("DELETE", "/loads/current", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp AbortResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Acknowledged, "idle abort is acknowledged at once")

	require.Equal(t, http.StatusAccepted, f.do("POST", "/loads", LoadRequest{Source: domain.SourceFiles, Items: []string{"a.dcm"}}).Code)
	w = f.do("DELETE", "/loads/current?wait=2s", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Acknowledged)
	assert.False(t, f.ctl.IsLoading())

	w = f.do("GET", "/loads/current", nil)
	var st loadkit.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Loading)

	assert.Equal(t, http.StatusBadRequest, f.do("DELETE", "/loads/current?wait=soon", nil).Code)
}

func TestGetHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "loadkit_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	f := newFixture(t, WithMetrics(reg))
	w := f.do("GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loadkit_test_total 1")

	assert.Equal(t, http.StatusNotFound, newFixture(t).do("GET", "/metrics", nil).Code)
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?types=load-start,load-end", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(5 * time.Second):
			t.Fatal("no SSE line")
			return ""
		}
	}
	require.Equal(t, "event: ping", next())
	require.Equal(t, "data: connected", next())
	require.Equal(t, "", next())

	// the client is registered before the ping is written
	require.Equal(t, http.StatusAccepted, f.do("POST", "/loads", LoadRequest{Source: domain.SourceFiles, Items: []string{"a.dcm"}}).Code)
	close(f.last().release)

	var got []string
	for len(got) < 2 {
		l := next()
		if strings.HasPrefix(l, "event: ") {
			got = append(got, strings.TrimPrefix(l, "event: "))
		}
		if strings.HasPrefix(l, "data: ") {
			assert.Contains(t, l, `"load_id"`)
		}
	}
	assert.Equal(t, []string{"load-start", "load-end"}, got)
}

func TestStreamManager_Sanitizes(t *testing.T) {
	sm := NewStreamManager(logging.NewNop(), middleware.NewRedactor(middleware.DefaultSensitiveParams).Text)
	ch, cancel := sm.Subscribe()
	defer cancel()

	sm.Publish(domain.ItemStartEvent{
		EventBase: domain.NewBase(domain.EventLoadItemStart, "id-1"),
		Item:      domain.Item{Name: "https://h/a.dcm?token=SECRET", Filename: "a.dcm", Data: bytes.Repeat([]byte("x"), 3000)},
		Loader:    "urls",
	})
	msg := <-ch
	assert.Less(t, len(msg.Data), 400, "buffers are not streamed")
	assert.NotContains(t, string(msg.Data), "SECRET")
	assert.NotContains(t, string(msg.Data), `"data"`)
	assert.Contains(t, string(msg.Data), "token=REDACTED")

	sm.Publish(domain.SliceEvent{
		EventBase: domain.NewBase(domain.EventLoadSlice, "id-1"),
		Data:      domain.SliceInfo{Name: "a.dcm", Source: "https://u:pw@h/a.dcm?sig=abc"},
	})
	msg = <-ch
	assert.NotContains(t, string(msg.Data), "pw@")
	assert.NotContains(t, string(msg.Data), "abc")

	sm.Publish(domain.ErrorEvent{
		EventBase: domain.NewBase(domain.EventLoadError, "id-1"),
		Message:   "HTTPError: GET https://h/a.dcm?X-Amz-Signature=f00: 403",
	})
	msg = <-ch
	assert.NotContains(t, string(msg.Data), "f00")
}
