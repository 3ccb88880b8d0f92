// Package jobmetrics instruments background jobs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	expired     prometheus.Counter
	sweepErrors *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddExpired counts quotes moved to Expired by a sweep.
func (m *Metrics) AddExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expired.Add(float64(count))
}

// AddSweepErrors counts quotes a sweep could not expire, by error kind.
func (m *Metrics) AddSweepErrors(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepErrors.WithLabelValues(kind).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_quotes_expired_total",
		Help: "Quotes moved to expired by the overdue sweep.",
	})
	sweepErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_quote_sweep_errors_total",
		Help: "Quotes the overdue sweep failed to expire, by error kind.",
	}, []string{"kind"})
	registerer.MustRegister(runs, failures, duration, expired, sweepErrors)
	return &Metrics{runs: runs, failures: failures, duration: duration, expired: expired, sweepErrors: sweepErrors}
}
