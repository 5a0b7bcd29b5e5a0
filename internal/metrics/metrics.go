package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_payment_transitions_total",
			Help: "Total number of payment status transitions",
		},
		[]string{"to_status"},
	)

	ReleasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_releases_total",
			Help: "Total number of escrow releases",
		},
	)

	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_escrow_sweep_runs_total",
			Help: "Total number of escrow sweep runs",
		},
	)

	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_escrow_sweep_failures_total",
			Help: "Total number of failed release attempts during sweeps",
		},
	)

	DocumentsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_billing_documents_issued_total",
			Help: "Total number of invoices and receipts issued",
		},
		[]string{"kind"},
	)

	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_payouts_total",
			Help: "Total number of payout requests",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_notification_queue_length",
			Help: "Current length of notification queue",
		},
	)

	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_gateway_requests_total",
			Help: "Total number of payment gateway calls",
		},
		[]string{"operation", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPaymentTransition(toStatus string) {
	PaymentTransitionsTotal.WithLabelValues(toStatus).Inc()
}

func RecordRelease() {
	ReleasesTotal.Inc()
}

func RecordSweep(failed int) {
	SweepRunsTotal.Inc()
	SweepFailuresTotal.Add(float64(failed))
}

func RecordDocument(kind string) {
	DocumentsIssuedTotal.WithLabelValues(kind).Inc()
}

func RecordPayout(status string) {
	PayoutsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

func RecordGatewayRequest(operation, status string) {
	GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
}
