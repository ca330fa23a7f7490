package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ambientes"

// CronJobMetrics records outcomes of scheduled maintenance jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	affected *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cron_job_duration_seconds",
		Help:      "Duration of cron jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cron_job_runs_total",
		Help:      "Cron job executions by outcome.",
	}, []string{"job", "outcome"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cron_job_rows_total",
		Help:      "Rows touched by cron jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, affected)
	return &CronJobMetrics{
		duration: duration,
		runs:     runs,
		affected: affected,
	}
}

// Observe records one run of job.
func (c *CronJobMetrics) Observe(job string, took time.Duration, rows int64, err error) {
	if c == nil || c.duration == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.runs.WithLabelValues(job, outcome).Inc()
	if rows > 0 {
		c.affected.WithLabelValues(job).Add(float64(rows))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
