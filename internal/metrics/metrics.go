package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_ingest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_ingest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_ingest_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Ingestion pipeline metrics
var (
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_ingest_ingests_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"outcome"},
	)

	IngestStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_ingest_step_duration_seconds",
			Help:    "Duration of each ingestion pipeline step",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"step"},
	)

	IngestInputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_ingest_input_bytes",
			Help:    "Size distribution of submitted images",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)
)

// Object store metrics
var (
	StorageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_ingest_storage_ops_total",
			Help: "Total number of object store operations",
		},
		[]string{"op", "status"},
	)

	StoragePutBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_ingest_storage_put_bytes_total",
			Help: "Total bytes written to the object store",
		},
	)

	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_ingest_storage_op_duration_seconds",
			Help:    "Object store operation duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_ingest_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_ingest_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Build info
var buildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "photo_ingest_build_info",
		Help: "Build information (value is always 1)",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo publishes build information as a constant gauge.
func SetBuildInfo(version, commit, goVersion string) {
	buildInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
