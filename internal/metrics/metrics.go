package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "encodegate"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Admission metrics
var (
	AdmissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Job request admission decisions by result, kind and code",
		},
		[]string{"result", "kind", "code"},
	)

	DispatchPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "published_total",
			Help:      "Accepted job requests handed to the dispatcher by status",
		},
		[]string{"status"},
	)
)

// Image provisioning metrics
var (
	ImageEnsureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "ensure_total",
			Help:      "EnsureImage calls by outcome (present, pulled, shared, error)",
		},
		[]string{"outcome"},
	)

	ImagePullDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "pull_duration_seconds",
			Help:      "Wall time of image pulls",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	ImagePullsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "pulls_in_flight",
			Help:      "Image pulls currently running in this process",
		},
	)

	ImagePullBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "pulled_bytes_total",
			Help:      "Layer bytes downloaded by completed pulls",
		},
	)
)

// Reaper metrics
var (
	ReaperRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "runs_total",
			Help:      "Cleanup runs by status (ok, partial, failed)",
		},
		[]string{"status"},
	)

	ReaperContainers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "containers_total",
			Help:      "Containers considered by cleanup by result (removed, skipped, failed)",
		},
		[]string{"result"},
	)

	ReaperLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed cleanup run",
		},
	)
)

// Engine metrics
var (
	EngineUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "up",
			Help:      "1 when the last engine health check succeeded",
		},
	)

	EngineContainers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "containers",
			Help:      "Containers reported by the engine by state",
		},
		[]string{"state"},
	)
)
