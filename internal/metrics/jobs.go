// Package metrics provides Prometheus metrics for the vidmark bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay low-cardinality: never user, chat, or job ids.

var (
	// JobsTotal counts finished watermark jobs by outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_jobs_total",
		Help: "Total number of finished watermark jobs, by outcome (completed/failed/canceled).",
	}, []string{"outcome"})

	// JobDuration tracks wall time from job start to cleanup.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidmark_job_duration_seconds",
		Help:    "Duration of watermark jobs, by outcome.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2.0, 12), // 0.5s to ~17m
	}, []string{"outcome"})

	// StageDuration tracks each job stage separately.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidmark_job_stage_duration_seconds",
		Help:    "Duration of job stages (download/process/upload).",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 14),
	}, []string{"stage"})

	// JobsActive is the number of jobs currently executing.
	JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidmark_jobs_active",
		Help: "Current number of executing watermark jobs.",
	})

	// QueueDepth is the number of admitted jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidmark_job_queue_depth",
		Help: "Current number of queued watermark jobs.",
	})

	// AdmissionTotal counts pool admission decisions.
	AdmissionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_job_admission_total",
		Help: "Total number of job admission decisions, by result (started/queued/busy/closed).",
	}, []string{"result"})

	// CleanupErrors counts temp files that could not be removed.
	CleanupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidmark_job_cleanup_errors_total",
		Help: "Total number of temporary file removals that failed.",
	})
)

// RecordJob records a finished job.
func RecordJob(outcome string, seconds float64) {
	JobsTotal.WithLabelValues(outcome).Inc()
	JobDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveStage records the duration of one job stage.
func ObserveStage(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordAdmission increments the admission counter.
func RecordAdmission(result string) {
	AdmissionTotal.WithLabelValues(result).Inc()
}

// IncCleanupErrors increments the cleanup error counter.
func IncCleanupErrors() {
	CleanupErrors.Inc()
}
