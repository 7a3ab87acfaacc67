package metrics

import "github.com/prometheus/client_golang/prometheus"

// Shard stream Prometheus metrics.
var (
	StreamsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "streams_opened_total",
			Help:      "Total number of shard streams opened",
		},
		[]string{"status"}, // "ok" / "error"
	)

	StreamOpenDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "solrstream",
			Name:      "stream_open_duration_seconds",
			Help:      "Time from request to first response byte of a shard stream",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	TuplesReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "tuples_read_total",
			Help:      "Total number of tuples read from shard streams",
		},
	)

	StreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "stream_errors_total",
			Help:      "Total shard stream errors",
		},
		[]string{"stage"}, // "open" / "read" / "close"
	)

	FilterMergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "filter_merges_total",
			Help:      "Total number of queries whose filter queries were merged into one clause",
		},
	)

	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solrstream",
			Name:      "streams_active",
			Help:      "Shard streams currently open",
		},
	)
)

// Export job Prometheus metrics.
var (
	ExportTuplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "export_tuples_total",
			Help:      "Tuples handed to the sink, by outcome",
		},
		[]string{"collection", "result"}, // "written" / "skipped"
	)

	ExportShardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrstream",
			Name:      "export_shards_total",
			Help:      "Shard export jobs finished, by status",
		},
		[]string{"collection", "status"},
	)
)

var streamMetricsRegistered bool

// RegisterStreamMetrics registers the stream and export metrics. Must be called once from main.
func RegisterStreamMetrics() {
	if streamMetricsRegistered {
		return
	}
	prometheus.MustRegister(StreamsOpenedTotal)
	prometheus.MustRegister(StreamOpenDuration)
	prometheus.MustRegister(TuplesReadTotal)
	prometheus.MustRegister(StreamErrorsTotal)
	prometheus.MustRegister(FilterMergesTotal)
	prometheus.MustRegister(StreamsActive)
	prometheus.MustRegister(ExportTuplesTotal)
	prometheus.MustRegister(ExportShardsTotal)
	streamMetricsRegistered = true
}
