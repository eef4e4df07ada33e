// Package metrics registers the Prometheus instruments symcache-server
// exposes on its side metrics listener. Every recording method is a
// nil-safe no-op when metrics are disabled, mirroring the corpus's own
// IsEnabled()-gated instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the server records against. A nil
// *Metrics is valid and every method on it becomes a no-op, so callers
// never need to branch on whether metrics are enabled.
type Metrics struct {
	cacheLookups      *prometheus.CounterVec
	transcodeDuration *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	queueDedupSkipped prometheus.Counter
	httpResponses     *prometheus.CounterVec
	sweepOrphans      prometheus.Counter
}

// New registers the full instrument set against reg and returns a
// *Metrics. Pass nil to disable metrics entirely. reg is taken as the
// concrete *prometheus.Registry (not the Registerer interface) so this
// nil check isn't defeated by a non-nil interface wrapping a nil pointer;
// the same registry is also the Gatherer the /metrics handler scrapes.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	return &Metrics{
		cacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "symcached_cache_lookups_total",
			Help: "Cache lookups by result.",
		}, []string{"result"}),

		transcodeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "symcached_transcode_duration_seconds",
			Help:    "Wall time of each try_transcode invocation, by outcome.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"outcome"}),

		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "symcached_queue_depth",
			Help: "Current length of the background work queue's FIFO.",
		}),

		queueDedupSkipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "symcached_queue_dedup_skipped_total",
			Help: "Background work items skipped because their key was already pending.",
		}),

		httpResponses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "symcached_http_responses_total",
			Help: "HTTP responses served, by status code.",
		}, []string{"status"}),

		sweepOrphans: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "symcached_sweep_orphans_removed_total",
			Help: "Orphaned staging directories removed by the sweeper.",
		}),
	}
}

// ObserveCacheLookup records a cache lookup result ("positive", "negative", or "miss").
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveTranscodeDuration records how long one try_transcode call took.
func (m *Metrics) ObserveTranscodeDuration(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.transcodeDuration.WithLabelValues(outcome).Observe(seconds)
}

// SetQueueDepth updates the queue-depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// IncQueueDedupSkipped records one background item skipped due to dedup.
func (m *Metrics) IncQueueDedupSkipped() {
	if m == nil {
		return
	}
	m.queueDedupSkipped.Inc()
}

// ObserveHTTPResponse records one HTTP response by status code.
func (m *Metrics) ObserveHTTPResponse(status string) {
	if m == nil {
		return
	}
	m.httpResponses.WithLabelValues(status).Inc()
}

// IncSweepOrphansRemoved records one orphaned staging directory removed.
func (m *Metrics) IncSweepOrphansRemoved() {
	if m == nil {
		return
	}
	m.sweepOrphans.Inc()
}
