// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Methods are safe on a nil receiver so components can run unmetered.
type Metrics struct {
	// Scan metrics
	ScanOutcomes    *prometheus.CounterVec
	PagesFetched    *prometheus.CounterVec
	WhaleEventsSeen *prometheus.CounterVec

	// Watch metrics
	LargeTradesDetected *prometheus.CounterVec
	InsiderSignals      *prometheus.CounterVec

	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec

	// Briefing metrics
	BriefingRunsTotal *prometheus.CounterVec
	BriefingDuration  *prometheus.HistogramVec
	NotificationsSent *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBriefing prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "whale_tracker"
	}
	factory := promauto.With(reg)

	return &Metrics{
		ScanOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "outcomes_total",
			Help:      "Scan counters by reason",
		}, []string{"reason"}),
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "pages_total",
			Help:      "Screener pages requested by group and status",
		}, []string{"group", "status"}),
		WhaleEventsSeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "whale_events_total",
			Help:      "Whale days detected by group",
		}, []string{"group"}),

		LargeTradesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "large_trades_total",
			Help:      "Large intraday prints by flow",
		}, []string{"flow"}),
		InsiderSignals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insider",
			Name:      "signals_total",
			Help:      "Insider signals by label",
		}, []string{"signal"}),

		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "External call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		BriefingRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "briefing",
			Name:      "runs_total",
			Help:      "Briefing runs by status",
		}, []string{"status"}),
		BriefingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "briefing",
			Name:      "duration_seconds",
			Help:      "Briefing phase duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "briefing",
			Name:      "notifications_total",
			Help:      "Notifications by status",
		}, []string{"status"}),

		LastSuccessfulBriefing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_briefing_timestamp",
			Help:      "Unix timestamp of last successful briefing run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves metrics gathered from a custom registry.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the metrics instance on the default registry.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordScanOutcome adds n to a scan reason counter.
func (m *Metrics) RecordScanOutcome(reason string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.ScanOutcomes.WithLabelValues(reason).Add(float64(n))
}

// RecordPage records one screener page request.
func (m *Metrics) RecordPage(group string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PagesFetched.WithLabelValues(group, status).Inc()
}

// RecordWhaleDay records a detected whale day.
func (m *Metrics) RecordWhaleDay(group string) {
	if m == nil {
		return
	}
	m.WhaleEventsSeen.WithLabelValues(group).Inc()
}

// RecordLargeTrade records a large intraday print.
func (m *Metrics) RecordLargeTrade(flow string) {
	if m == nil {
		return
	}
	m.LargeTradesDetected.WithLabelValues(flow).Inc()
}

// RecordInsiderSignal records an insider signal label.
func (m *Metrics) RecordInsiderSignal(signal string) {
	if m == nil {
		return
	}
	m.InsiderSignals.WithLabelValues(signal).Inc()
}

// ObserveUpstream records the latency of an external call started at start.
func (m *Metrics) ObserveUpstream(source string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// RecordBriefingPhase records the duration of one briefing phase.
func (m *Metrics) RecordBriefingPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.BriefingDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordBriefingRun records a finished briefing run.
func (m *Metrics) RecordBriefingRun(status string, at time.Time) {
	if m == nil {
		return
	}
	m.BriefingRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.LastSuccessfulBriefing.Set(float64(at.Unix()))
	}
}

// RecordNotification records a notification attempt.
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.NotificationsSent.WithLabelValues(status).Inc()
}
