package fbvector

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional collector, following the examples/observability
// pattern shipped alongside hupe1980-vecgo in the example pack: counters
// are created unregistered, and NewMetrics(reg) registers them against a
// caller-supplied prometheus.Registerer. A nil *Metrics (the default) means
// every increment in this package is a cheap no-op.
type Metrics struct {
	growthEvents         prometheus.Counter
	checksumRecomputes   *prometheus.CounterVec
	corruptionDetections prometheus.Counter
}

// NewMetrics creates and registers the fbvector counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		growthEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbvector_growth_events_total",
			Help: "Number of times a vector's backing file was extended.",
		}),
		checksumRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbvector_checksum_recomputes_total",
			Help: "Number of ComputeChecksum recomputations (cache hits excluded), by file path and path taken (cheap/expensive).",
		}, []string{"path", "kind"}),
		corruptionDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fbvector_corruption_detections_total",
			Help: "Number of open-time integrity failures detected.",
		}),
	}
	reg.MustRegister(m.growthEvents, m.checksumRecomputes, m.corruptionDetections)
	return m
}

func (m *Metrics) growth() {
	if m == nil {
		return
	}
	m.growthEvents.Inc()
}

func (m *Metrics) checksumRecompute(path, kind string) {
	if m == nil {
		return
	}
	m.checksumRecomputes.WithLabelValues(path, kind).Inc()
}

func (m *Metrics) corruption() {
	if m == nil {
		return
	}
	m.corruptionDetections.Inc()
}
