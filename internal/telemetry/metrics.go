package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration tracks HTTP request latency for the operator/ingest API.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "pulsegrid",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var IngestBatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Total number of ingest batches processed, by outcome.",
	},
	[]string{"outcome"}, // accepted, duplicate, auth_error, validation_error, error
)

var IngestSamplesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "ingest",
		Name:      "samples_total",
		Help:      "Total number of samples appended.",
	},
)

var ProbesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "prober",
		Name:      "probes_total",
		Help:      "Total number of HTTP probes executed, by outcome.",
	},
	[]string{"ok"},
)

var ProbeDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "pulsegrid",
		Subsystem: "prober",
		Name:      "probe_duration_seconds",
		Help:      "HTTP probe round-trip duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

var IncidentsOpenedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "incidents",
		Name:      "opened_total",
		Help:      "Total number of incidents opened, by subject kind.",
	},
	[]string{"subject_kind"},
)

var IncidentsResolvedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "incidents",
		Name:      "resolved_total",
		Help:      "Total number of incidents resolved, by subject kind.",
	},
	[]string{"subject_kind"},
)

var NotificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pulsegrid",
		Subsystem: "notifier",
		Name:      "sent_total",
		Help:      "Total number of notifications sent, by provider and status.",
	},
	[]string{"provider", "status"},
)

var QueueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pulsegrid",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Approximate depth of each work queue.",
	},
	[]string{"queue"},
)

// All returns every PulseGrid-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		IngestBatchesTotal,
		IngestSamplesTotal,
		ProbesTotal,
		ProbeDuration,
		IncidentsOpenedTotal,
		IncidentsResolvedTotal,
		NotificationsSentTotal,
		QueueDepth,
	}
}
