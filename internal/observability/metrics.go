package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notesctl"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	notesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "notes_total",
			Help:      "Notes rendered, by outcome.",
		},
		[]string{"outcome"},
	)
	attachmentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "attachments_total",
			Help:      "Attachments rendered, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "decode_duration_seconds",
			Help:      "Time to decompress, decode and render one item.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"item"},
	)
	sinkWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Sink writes, by sink and success.",
		},
		[]string{"sink", "success"},
	)
	sinkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_duration_seconds",
			Help:      "Sink write duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			notesProcessed, attachmentsProcessed, decodeDuration,
			sinkWrites, sinkDuration,
		)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordNote counts one note; outcome is ok, partial or failed.
func RecordNote(outcome string, duration time.Duration) {
	RegisterMetrics()
	notesProcessed.WithLabelValues(outcome).Inc()
	decodeDuration.WithLabelValues("note").Observe(duration.Seconds())
}

func RecordAttachment(kind string, success bool, duration time.Duration) {
	RegisterMetrics()
	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	attachmentsProcessed.WithLabelValues(kind, outcome).Inc()
	decodeDuration.WithLabelValues("attachment").Observe(duration.Seconds())
}

func RecordSinkWrite(sink string, duration time.Duration, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	sinkWrites.WithLabelValues(sink, successLabel).Inc()
	sinkDuration.WithLabelValues(sink, successLabel).Observe(duration.Seconds())
}
