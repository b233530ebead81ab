// Package telemetry exposes the fabric's operational metrics, grounded
// on the monitoring package of the pack's operations-dashboard example
// repo: one package-level registry, constructor functions that accept
// a *prometheus.Registry so a daemon can choose whether to use the
// default global registry or an isolated one in tests.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every Prometheus collector the routing engine
// updates on its hot paths (spec.md §5's per-face/per-resource
// counters).
type Metrics struct {
	FacesConnected   prometheus.Gauge
	DeclaresTotal    *prometheus.CounterVec
	PushesTotal      *prometheus.CounterVec
	PushesDropped    *prometheus.CounterVec
	QueriesTotal     prometheus.Counter
	QueryLatency     prometheus.Histogram
	RouteCacheMisses prometheus.Counter
	TxQueueDepth     *prometheus.GaugeVec
}

// NewMetrics registers every collector against reg and returns the
// bundle. Passing a fresh prometheus.NewRegistry() keeps test
// instances isolated from the process-wide default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FacesConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fabric", Subsystem: "faces", Name: "connected",
			Help: "Number of currently connected faces.",
		}),
		DeclaresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric", Subsystem: "declare", Name: "total",
			Help: "Declarations processed, by declaration kind.",
		}, []string{"kind"}),
		PushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric", Subsystem: "push", Name: "total",
			Help: "Data-plane pushes forwarded, by outcome.",
		}, []string{"outcome"}),
		PushesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric", Subsystem: "push", Name: "dropped_total",
			Help: "Pushes dropped for back pressure, by face id.",
		}, []string{"face"}),
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fabric", Subsystem: "query", Name: "total",
			Help: "Queries originated or forwarded.",
		}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fabric", Subsystem: "query", Name: "latency_seconds",
			Help:    "Time from Request to final consolidated reply.",
			Buckets: prometheus.DefBuckets,
		}),
		RouteCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fabric", Subsystem: "route", Name: "cache_misses_total",
			Help: "DataRoute cache misses requiring recomputation.",
		}),
		TxQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fabric", Subsystem: "face", Name: "tx_queue_depth",
			Help: "Current TX queue depth, by face id.",
		}, []string{"face"}),
	}

	reg.MustRegister(
		m.FacesConnected,
		m.DeclaresTotal,
		m.PushesTotal,
		m.PushesDropped,
		m.QueriesTotal,
		m.QueryLatency,
		m.RouteCacheMisses,
		m.TxQueueDepth,
	)
	return m
}
