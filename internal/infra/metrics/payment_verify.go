package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		WebhookRequests,
		WebhookDuration,
		PaymentDMTotal,
	)
}

var (
	// Count of provider notifications grouped by provider, result and bounded reason.
	// result: ok|reject|error
	// reason: bad_signature|bad_source_ip|unverified_status|malformed_payload|not_found|push_failed|unknown
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_requests_total",
			Help: "Count of provider webhook calls by provider, result and reason.",
		},
		[]string{"provider", "result", "reason"},
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_webhook_duration_seconds",
			Help:    "Duration of provider webhook handling in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider", "result"},
	)

	// Telegram DMs about fulfilled payments.
	// kind: payer|referrer|cleanup
	// status: sent|error|no_user
	PaymentDMTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_dm_total",
			Help: "Telegram DMs about payment status by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)
)

func ObserveWebhook(provider, result, reason string, seconds float64) {
	WebhookRequests.WithLabelValues(norm(provider), norm(result), norm(reason)).Inc()
	WebhookDuration.WithLabelValues(norm(provider), norm(result)).Observe(seconds)
}

func IncPaymentDM(kind, status string) {
	PaymentDMTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
