package observability

import (
	"sync"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/relay"
	"github.com/prometheus/client_golang/prometheus"
)

// EventSource is where Metrics subscribes.
type EventSource interface {
	AddEventListener(t domain.EventType, fn relay.Listener) relay.ListenerID
}

// Metrics records load events as Prometheus metrics.
type Metrics struct {
	events   *prometheus.CounterVec
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	slices   prometheus.Counter
	bytes    prometheus.Counter
	active   prometheus.Gauge

	mu       sync.Mutex
	inflight map[string]*loadState
}

type loadState struct {
	started time.Time
	outcome domain.Outcome
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadkit_events_total",
				Help: "Total number of relay events by type",
			},
			[]string{"type"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadkit_loads_total",
				Help: "Total number of finished image loads by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadkit_load_duration_seconds",
				Help:    "Duration of image loads",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"outcome"},
		),
		slices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadkit_slices_total",
			Help: "Total number of slices delivered",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadkit_slice_bytes_total",
			Help: "Total size of the slices delivered",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadkit_active_loads",
			Help: "Number of image loads in flight",
		}),
		inflight: make(map[string]*loadState),
	}
	reg.MustRegister(m.events, m.loads, m.duration, m.slices, m.bytes, m.active)
	return m
}

// Attach subscribes m to every event type of src.
func (m *Metrics) Attach(src EventSource) {
	for _, t := range domain.EventTypes {
		src.AddEventListener(t, m.Observe)
	}
}

// Observe records one event.
func (m *Metrics) Observe(e domain.Event) {
	m.events.WithLabelValues(string(e.EventType())).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev := e.(type) {
	case domain.StartEvent:
		m.active.Inc()
		m.inflight[ev.LoadID] = &loadState{started: ev.Timestamp}
	case domain.SliceEvent:
		m.slices.Inc()
		m.bytes.Add(float64(ev.Data.Size))
	case domain.ErrorEvent:
		m.fail(ev.LoadID, domain.OutcomeError)
	case domain.AbortEvent:
		m.fail(ev.LoadID, domain.OutcomeAbort)
	case domain.EndEvent:
		st, ok := m.inflight[ev.LoadID]
		if !ok {
			return
		}
		delete(m.inflight, ev.LoadID)
		m.active.Dec()
		outcome := st.outcome
		if outcome == "" {
			outcome = domain.OutcomeSuccess
		}
		m.loads.WithLabelValues(string(outcome)).Inc()
		m.duration.WithLabelValues(string(outcome)).Observe(ev.Timestamp.Sub(st.started).Seconds())
	}
}

// fail is a no-op for state loads, which never start.
func (m *Metrics) fail(id string, outcome domain.Outcome) {
	if st, ok := m.inflight[id]; ok && st.outcome == "" {
		st.outcome = outcome
	}
}

// EventCounter exposes loadkit_events_total.
func (m *Metrics) EventCounter() *prometheus.CounterVec { return m.events }

// LoadCounter exposes loadkit_loads_total.
func (m *Metrics) LoadCounter() *prometheus.CounterVec { return m.loads }

// DurationHistogram exposes loadkit_load_duration_seconds.
func (m *Metrics) DurationHistogram() *prometheus.HistogramVec { return m.duration }

// ActiveGauge exposes loadkit_active_loads.
func (m *Metrics) ActiveGauge() prometheus.Gauge { return m.active }
