package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the order sync service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Sync Metrics
	SyncPassesTotal   *prometheus.CounterVec
	SyncPassDuration  *prometheus.HistogramVec
	OrdersImported    *prometheus.CounterVec
	OrdersSkipped     *prometheus.CounterVec
	TxAttemptsTotal   *prometheus.CounterVec
	TargetEntries     prometheus.Gauge
	SourceConnections *prometheus.GaugeVec
}

// NewMetricsRegistry registers every metric on reg. The server passes
// prometheus.DefaultRegisterer, tests pass a fresh prometheus.NewRegistry().
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ordersync_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ordersync_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Sync Metrics
		SyncPassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_pass_total",
				Help: "Reconciliation passes by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		SyncPassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ordersync_pass_duration_seconds",
				Help:    "Reconciliation pass execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"trigger"},
		),
		OrdersImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_imported_total",
				Help: "Orders appended to the ADV payload",
			},
			[]string{"trigger"},
		),
		OrdersSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_skipped_total",
				Help: "Candidates excluded from import by reason",
			},
			[]string{"reason"},
		),
		TxAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_tx_attempts_total",
				Help: "Target document transaction attempts by store and outcome",
			},
			[]string{"store", "outcome"},
		),
		TargetEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ordersync_target_entries",
				Help: "Entries in the ADV payload after the last write",
			},
		),
		SourceConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ordersync_source_connections",
				Help: "Dolibarr pool connections by state",
			},
			[]string{"state"},
		),
	}
}
