// Package metrics exposes Prometheus counters for settings writes and
// scheduled job runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keepstone"

// Collector owns the application's metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry      *prometheus.Registry
	settingWrites *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	notifications prometheus.Counter
}

// NewCollector registers the metrics on a fresh registry together with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		// Labels: scope (global, project), outcome (applied, rejected, failed)
		settingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settings",
			Name:      "writes_total",
			Help:      "Settings writes by scope and outcome",
		}, []string{"scope", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and outcome",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"job"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expiry",
			Name:      "notifications_total",
			Help:      "Expiry notifications sent",
		}),
	}
	reg.MustRegister(
		c.settingWrites,
		c.jobRuns,
		c.jobDuration,
		c.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// SettingsWrite counts one settings write.
func (c *Collector) SettingsWrite(scope, outcome string) {
	if c == nil {
		return
	}
	c.settingWrites.WithLabelValues(scope, outcome).Inc()
}

// JobRun records a finished job run.
func (c *Collector) JobRun(job, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(job, outcome).Inc()
	c.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// NotificationsSent adds n to the expiry notification counter.
func (c *Collector) NotificationsSent(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.notifications.Add(float64(n))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
