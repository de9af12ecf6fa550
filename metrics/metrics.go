package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClipperMetrics is the observability surface for the Job Coordinator
// and Renderer, exposed at GET /metrics.
type ClipperMetrics struct {
	JobsInFlight         prometheus.Gauge
	JobsQueued           prometheus.Gauge
	JobsTotal            *prometheus.CounterVec
	JobDurationSec       *prometheus.HistogramVec
	RenderDurationSec    prometheus.Histogram
	RenderFailures       *prometheus.CounterVec
	ProbeDurationSec     prometheus.Histogram
	HTTPRequestsInFlight prometheus.Gauge
}

func NewClipperMetrics() *ClipperMetrics {
	return &ClipperMetrics{
		JobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clipper_jobs_in_flight",
			Help: "Number of clip jobs currently being worked on.",
		}),
		JobsQueued: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clipper_jobs_queued",
			Help: "Number of clip jobs waiting for a worker slot.",
		}),
		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clipper_jobs_total",
			Help: "Count of completed clip jobs by terminal status.",
		}, []string{"status", "error_kind"}),
		JobDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clipper_job_duration_seconds",
			Help:    "End-to-end wall-clock duration of a clip job.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		}, []string{"status"}),
		RenderDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipper_render_duration_seconds",
			Help:    "Duration of a job's whole render stage, across all of its selected clips.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RenderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clipper_render_failures_total",
			Help: "Count of selected clips that produced no rendered output, by stage.",
		}, []string{"stage"}),
		ProbeDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipper_probe_duration_seconds",
			Help:    "Duration of media-probe invocations.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clipper_http_requests_in_flight",
			Help: "Number of HTTP API requests currently being handled.",
		}),
	}
}

// Metrics is the process-wide singleton, wired at startup.
var Metrics = NewClipperMetrics()
