package assets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the cache counters exported to Prometheus
type Metrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Loads     prometheus.Counter
	Failures  prometheus.Counter
	Reloads   prometheus.Counter
	Evictions prometheus.Counter
	Entries   prometheus.Gauge
}

// NewMetrics creates the cache metrics and registers them with reg. A nil
// registerer yields working but unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "silica",
			Subsystem: "assets",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Hits:      counter("cache_hits_total", "Loads served from the cache."),
		Misses:    counter("cache_misses_total", "Loads that had to run a loader."),
		Loads:     counter("loads_total", "Successful loader runs."),
		Failures:  counter("load_failures_total", "Failed loader runs."),
		Reloads:   counter("hot_reloads_total", "Assets replaced by hot reload."),
		Evictions: counter("evictions_total", "Entries removed by unload or collection."),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "silica",
			Subsystem: "assets",
			Name:      "entries",
			Help:      "Entries currently held by the cache.",
		}),
	}
}
