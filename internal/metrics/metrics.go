// Package metrics provides Prometheus metrics for Overflow Admin.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "overflow_admin"

// Ban duration labels.
const (
	DurationPermanent = "permanent"
	DurationTemporary = "temporary"
	DurationTest      = "test"
)

// Unban source labels.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Metrics holds every collector the server exports.
type Metrics struct {
	registry *prometheus.Registry

	// Moderation
	BansTotal   *prometheus.CounterVec
	UnbansTotal *prometheus.CounterVec

	// Expiry sweep
	AutoUnbanRuns        prometheus.Counter
	AutoUnbanRunDuration prometheus.Histogram
	AutoUnbanLastRunTime prometheus.Gauge
	AutoUnbanErrors      prometheus.Counter
	AutoUnbanSkippedRuns prometheus.Counter

	// Content
	VisibilityChanges *prometheus.CounterVec

	// Notifications
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		BansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bans_total",
			Help:      "Users banned, by duration kind.",
		}, []string{"duration"}),
		UnbansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unbans_total",
			Help:      "Users unbanned, by source.",
		}, []string{"source"}),

		AutoUnbanRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_unban_runs_total",
			Help:      "Completed expiry sweeps.",
		}),
		AutoUnbanRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auto_unban_run_duration_seconds",
			Help:      "Duration of expiry sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		AutoUnbanLastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auto_unban_last_run_timestamp",
			Help:      "Unix time of the last completed expiry sweep.",
		}),
		AutoUnbanErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_unban_errors_total",
			Help:      "Failed sweeps and per-user failures inside sweeps.",
		}),
		AutoUnbanSkippedRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_unban_skipped_runs_total",
			Help:      "Sweeps skipped because another replica held the lock.",
		}),

		VisibilityChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_visibility_changes_total",
			Help:      "Hide and unhide operations, by content kind.",
		}, []string{"kind", "action"}),

		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered, by template.",
		}, []string{"template"}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that failed after retries, by template.",
		}, []string{"template"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordBan counts one ban.
func (m *Metrics) RecordBan(duration string) {
	m.BansTotal.WithLabelValues(duration).Inc()
}

// RecordUnban counts one unban.
func (m *Metrics) RecordUnban(source string) {
	m.UnbansTotal.WithLabelValues(source).Inc()
}

// RecordAutoUnbanRun records a finished sweep.
func (m *Metrics) RecordAutoUnbanRun(duration time.Duration, unbanned, errors int) {
	m.AutoUnbanRuns.Inc()
	m.AutoUnbanRunDuration.Observe(duration.Seconds())
	m.AutoUnbanLastRunTime.SetToCurrentTime()
	m.UnbansTotal.WithLabelValues(SourceAuto).Add(float64(unbanned))
	m.AutoUnbanErrors.Add(float64(errors))
}

// RecordVisibilityChange counts one hide or unhide.
func (m *Metrics) RecordVisibilityChange(kind, action string) {
	m.VisibilityChanges.WithLabelValues(kind, action).Inc()
}

// RecordNotification counts one delivered or failed notification.
func (m *Metrics) RecordNotification(template string, err error) {
	if err != nil {
		m.NotificationsFailed.WithLabelValues(template).Inc()
		return
	}
	m.NotificationsSent.WithLabelValues(template).Inc()
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
