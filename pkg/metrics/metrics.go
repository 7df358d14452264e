package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytevault_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Billing run metrics
	BillingRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytevault_billing_run_duration_seconds",
			Help: "Duration of the last billing run",
		},
	)

	BillingInvoicesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytevault_billing_invoices_created_total",
			Help: "Invoices created across all billing runs",
		},
	)

	BillingRunFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytevault_billing_run_user_failures",
			Help: "Users that failed in the last billing run",
		},
	)

	BillingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_billing_runs_total",
			Help: "Billing runs by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveBillingRun records the outcome of a completed billing run.
func ObserveBillingRun(durationSeconds float64, invoicesCreated, failures int) {
	BillingRunDuration.Set(durationSeconds)
	BillingInvoicesCreated.Add(float64(invoicesCreated))
	BillingRunFailures.Set(float64(failures))
	if failures > 0 {
		BillingRunsTotal.WithLabelValues("partial").Inc()
	} else {
		BillingRunsTotal.WithLabelValues("success").Inc()
	}
}
