package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for reconciliation runs and courier calls.
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_sync_runs_total",
			Help: "Total number of reconciliation runs by result",
		},
		[]string{"result"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "courier_sync_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_sync_orders_total",
			Help: "Total number of reconciled orders by outcome",
		},
		[]string{"outcome"},
	)

	TenantErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_sync_tenant_errors_total",
			Help: "Total number of tenants that failed inside a run",
		},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_sync_provider_requests_total",
			Help: "Total number of courier provider calls by result",
		},
		[]string{"provider", "result"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_sync_provider_request_duration_seconds",
			Help:    "Courier provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	NotificationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_sync_notifications_failed_total",
			Help: "Total number of order change events that could not be published",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(OrdersTotal)
	prometheus.MustRegister(TenantErrorsTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(NotificationsFailedTotal)
}

// ObserveProviderCall records one courier call.
func ObserveProviderCall(provider string, started time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, result).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}
