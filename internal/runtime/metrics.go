package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/wormhole/internal/runtime/correlator"
)

// CorrelatorMetrics exports correlator counters to Prometheus and keeps an
// in-process copy for Snapshot. It implements correlator.Recorder.
type CorrelatorMetrics struct {
	mu sync.RWMutex

	events      map[string]uint64
	noise       map[string]uint64
	records     map[string]uint64
	evictions   map[string]uint64
	roots       map[string]uint64
	overwritten uint64
	pending     int
	updatedAt   time.Time

	eventsTotal     *prometheus.CounterVec
	noiseTotal      *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	evictionsTotal  *prometheus.CounterVec
	rootFieldsTotal *prometheus.CounterVec
	overwritesTotal prometheus.Counter
	pendingCurrent  prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

// CorrelatorMetricsSnapshot is a point-in-time view of CorrelatorMetrics.
type CorrelatorMetricsSnapshot struct {
	Events      map[string]uint64 `json:"events"`
	NoiseDrops  map[string]uint64 `json:"noise_drops"`
	Records     map[string]uint64 `json:"records"`
	Orphans     uint64            `json:"orphans"`
	Overwrites  uint64            `json:"overwrites"`
	Evictions   map[string]uint64 `json:"evictions"`
	RootFields  map[string]uint64 `json:"root_fields"`
	Pending     int               `json:"pending"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
	CollectedAt time.Time         `json:"collected_at"`
}

func newCorrelatorCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wormhole",
			Subsystem: "correlator",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewCorrelatorMetrics creates the collectors. Call Register before scraping.
func NewCorrelatorMetrics(registerer prometheus.Registerer) *CorrelatorMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CorrelatorMetrics{
		events:          make(map[string]uint64),
		noise:           make(map[string]uint64),
		records:         make(map[string]uint64),
		evictions:       make(map[string]uint64),
		roots:           make(map[string]uint64),
		registerer:      registerer,
		eventsTotal:     newCorrelatorCounterVec("events_total", "Hook events observed, by direction class", "kind"),
		noiseTotal:      newCorrelatorCounterVec("noise_dropped_total", "Events dropped by the service denylist", "pattern"),
		recordsTotal:    newCorrelatorCounterVec("records_total", "Records emitted, by record kind", "kind"),
		evictionsTotal:  newCorrelatorCounterVec("pending_evicted_total", "Unresolved calls dropped without a reply", "reason"),
		rootFieldsTotal: newCorrelatorCounterVec("root_fields_total", "Normalization outcomes of root fields", "outcome"),
		overwritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wormhole",
			Subsystem: "correlator",
			Name:      "pending_overwritten_total",
			Help:      "Unresolved calls replaced by a newer call on the same thread",
		}),
		pendingCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wormhole",
			Subsystem: "correlator",
			Name:      "pending_current",
			Help:      "Calls currently waiting for a reply",
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *CorrelatorMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.eventsTotal,
		m.noiseTotal,
		m.recordsTotal,
		m.evictionsTotal,
		m.rootFieldsTotal,
		m.overwritesTotal,
		m.pendingCurrent,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *CorrelatorMetrics) EventObserved(kind correlator.EventKind) {
	m.inc(m.events, kind.String())
	m.eventsTotal.WithLabelValues(kind.String()).Inc()
}

func (m *CorrelatorMetrics) NoiseDropped(pattern string) {
	m.inc(m.noise, pattern)
	m.noiseTotal.WithLabelValues(pattern).Inc()
}

func (m *CorrelatorMetrics) RecordEmitted(kind correlator.RecordKind) {
	m.inc(m.records, string(kind))
	m.recordsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *CorrelatorMetrics) PendingEvicted(reason correlator.EvictReason) {
	m.inc(m.evictions, string(reason))
	m.evictionsTotal.WithLabelValues(string(reason)).Inc()
}

func (m *CorrelatorMetrics) RootField(outcome correlator.RootOutcome) {
	m.inc(m.roots, string(outcome))
	m.rootFieldsTotal.WithLabelValues(string(outcome)).Inc()
}

func (m *CorrelatorMetrics) PendingOverwritten() {
	m.mu.Lock()
	m.overwritten++
	m.updatedAt = time.Now()
	m.mu.Unlock()
	m.overwritesTotal.Inc()
}

func (m *CorrelatorMetrics) PendingSize(n int) {
	m.mu.Lock()
	m.pending = n
	m.updatedAt = time.Now()
	m.mu.Unlock()
	m.pendingCurrent.Set(float64(n))
}

func (m *CorrelatorMetrics) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.updatedAt = time.Now()
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counts.
func (m *CorrelatorMetrics) Snapshot() CorrelatorMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return CorrelatorMetricsSnapshot{
		Events:      cloneCounts(m.events),
		NoiseDrops:  cloneCounts(m.noise),
		Records:     cloneCounts(m.records),
		Orphans:     m.records[string(correlator.RecordOrphan)],
		Overwrites:  m.overwritten,
		Evictions:   cloneCounts(m.evictions),
		RootFields:  cloneCounts(m.roots),
		Pending:     m.pending,
		UpdatedAt:   m.updatedAt,
		CollectedAt: time.Now(),
	}
}

// Reset clears all counts (useful for testing).
func (m *CorrelatorMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = make(map[string]uint64)
	m.noise = make(map[string]uint64)
	m.records = make(map[string]uint64)
	m.evictions = make(map[string]uint64)
	m.roots = make(map[string]uint64)
	m.overwritten = 0
	m.pending = 0
	m.updatedAt = time.Time{}

	m.eventsTotal.Reset()
	m.noiseTotal.Reset()
	m.recordsTotal.Reset()
	m.evictionsTotal.Reset()
	m.rootFieldsTotal.Reset()
	m.pendingCurrent.Set(0)
}

func cloneCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
