package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"defectinsight/internal/analytics"
)

// Metrics exposes analytics counters to Prometheus
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	computeLatency prometheus.Histogram
	unparseable    prometheus.Counter
	insights       *prometheus.CounterVec
	loaded         prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "defectinsight_snapshot_cache_hits_total",
			Help: "Corpus analytics requests served from the cached snapshot.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "defectinsight_snapshot_cache_misses_total",
			Help: "Corpus analytics requests that recomputed the snapshot.",
		}),
		computeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "defectinsight_snapshot_compute_seconds",
			Help:    "Time spent running the corpus aggregate queries.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		unparseable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "defectinsight_unparseable_timestamps_total",
			Help: "Defect timestamps that could not be normalized.",
		}),
		insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "defectinsight_insight_requests_total",
			Help: "Record-set analyses by kind.",
		}, []string{"kind"}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "defectinsight_defects_loaded_total",
			Help: "Defect records written to the store by load or generate.",
		}),
	}

	reg.MustRegister(m.cacheHits, m.cacheMisses, m.computeLatency, m.unparseable, m.insights, m.loaded)
	return m
}

func (m *Metrics) CacheHit() { m.cacheHits.Inc() }

func (m *Metrics) CacheMiss() { m.cacheMisses.Inc() }

func (m *Metrics) ObserveCompute(seconds float64) { m.computeLatency.Observe(seconds) }

func (m *Metrics) RecordUnparseable() { m.unparseable.Inc() }

// RecordInsight counts one record-set analysis of the given kind
func (m *Metrics) RecordInsight(kind string) { m.insights.WithLabelValues(kind).Inc() }

// RecordLoaded counts records written to the store
func (m *Metrics) RecordLoaded(n int) { m.loaded.Add(float64(n)) }

var (
	_ analytics.CacheObserver       = (*Metrics)(nil)
	_ analytics.UnparseableRecorder = (*Metrics)(nil)
)
