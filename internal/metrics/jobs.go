// Package metrics provides Prometheus metrics for job execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "jobs",
		Name:      "started_total",
		Help:      "Total jobs started",
	}, []string{"kind"})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Total jobs finished by outcome",
	}, []string{"kind", "outcome"})

	jobsRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "videobridge",
		Subsystem: "jobs",
		Name:      "running",
		Help:      "Jobs currently running",
	}, []string{"kind"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "videobridge",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Job wall-clock duration in seconds",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"kind", "outcome"})

	jobProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "videobridge",
		Subsystem: "jobs",
		Name:      "progress_percent",
		Help:      "Current progress of the running job",
	}, []string{"kind"})
)

// JobStarted records a job start and marks it running.
func JobStarted(kind string) {
	jobsStarted.WithLabelValues(kind).Inc()
	jobsRunning.WithLabelValues(kind).Set(1)
	jobProgress.WithLabelValues(kind).Set(0)
}

// JobFinished records a job completion with its terminal outcome.
func JobFinished(kind, outcome string, duration time.Duration) {
	jobsFinished.WithLabelValues(kind, outcome).Inc()
	jobDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
	jobsRunning.WithLabelValues(kind).Set(0)
	jobProgress.DeleteLabelValues(kind)
}

// SetJobProgress updates the progress gauge for a running job.
func SetJobProgress(kind string, percent float64) {
	jobProgress.WithLabelValues(kind).Set(percent)
}

// Handler returns the Prometheus metrics HTTP handler. It collects all
// promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
