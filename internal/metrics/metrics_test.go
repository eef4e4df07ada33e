package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCacheLookup("positive")
		m.ObserveTranscodeDuration("published", 1.5)
		m.SetQueueDepth(3)
		m.IncQueueDedupSkipped()
		m.ObserveHTTPResponse("200")
		m.IncSweepOrphansRemoved()
	})
}

func TestObserveCacheLookupIncrementsLabeledCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCacheLookup("positive")
	m.ObserveCacheLookup("positive")
	m.ObserveCacheLookup("miss")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "symcached_cache_lookups_total" {
			found = f
		}
	}
	require.NotNil(t, found)

	totals := map[string]float64{}
	for _, metric := range found.Metric {
		for _, label := range metric.Label {
			if label.GetName() == "result" {
				totals[label.GetValue()] = metric.Counter.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, totals["positive"])
	assert.Equal(t, 1.0, totals["miss"])
}

func TestSetQueueDepthUpdatesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetQueueDepth(7)

	families, err := reg.Gather()
	require.NoError(t, err)

	var value float64
	for _, f := range families {
		if f.GetName() == "symcached_queue_depth" {
			value = f.Metric[0].Gauge.GetValue()
		}
	}
	assert.Equal(t, 7.0, value)
}
