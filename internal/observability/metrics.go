// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and dependency health checks for the bot.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics.
// Uses a custom registry — no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Inbound update metrics.
	UpdatesTotal  *prometheus.CounterVec
	DispatchTotal *prometheus.CounterVec

	// Outbound Telegram API metrics.
	APICallsTotal   *prometheus.CounterVec
	APICallDuration *prometheus.HistogramVec

	// Store metrics.
	StoreOpDuration *prometheus.HistogramVec

	// System metrics.
	ActiveUpdates prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kituo",
			Subsystem: "gateway",
			Name:      "updates_total",
			Help:      "Total inbound Telegram updates by kind.",
		}, []string{"kind"}),

		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kituo",
			Subsystem: "router",
			Name:      "dispatch_total",
			Help:      "Total dispatched events by intent and outcome.",
		}, []string{"intent", "outcome"}),

		APICallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kituo",
			Subsystem: "telegram",
			Name:      "api_calls_total",
			Help:      "Total Telegram Bot API calls.",
		}, []string{"method", "status"}),

		APICallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kituo",
			Subsystem: "telegram",
			Name:      "api_call_duration_seconds",
			Help:      "Telegram Bot API call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method"}),

		StoreOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kituo",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		ActiveUpdates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kituo",
			Subsystem: "gateway",
			Name:      "active_updates",
			Help:      "Updates currently being processed.",
		}),
	}

	reg.MustRegister(
		m.UpdatesTotal,
		m.DispatchTotal,
		m.APICallsTotal,
		m.APICallDuration,
		m.StoreOpDuration,
		m.ActiveUpdates,
	)

	return m
}
