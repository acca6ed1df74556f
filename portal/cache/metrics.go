package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache activity. A nil *Metrics records nothing.
type Metrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	fetches *prometheus.CounterVec
	evicts  prometheus.Counter
}

// NewMetrics registers the cache collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Loads served from a fresh entry without fetching.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Loads that joined or started a fetch.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cache",
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts by result.",
		}, []string{"result"}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed by sweeping.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.fetches, m.evicts)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) fetched(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.fetches.WithLabelValues("error").Inc()
		return
	}
	m.fetches.WithLabelValues("ok").Inc()
}

func (m *Metrics) evicted(n int) {
	if m != nil && n > 0 {
		m.evicts.Add(float64(n))
	}
}
