package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileTotal,
		expiredPaymentsTotal,
		sideEffectsTotal,
	)
}

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_total",
			Help: "Reconciliation polls by provider and outcome.",
		},
		[]string{"provider", "result"}, // 'confirmed', 'pending', 'unsupported', 'error'
	)

	expiredPaymentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_expired_total",
			Help: "Pending payments moved to EXPIRED by the sweeper.",
		},
	)

	sideEffectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_side_effects_total",
			Help: "Detached post-commit tasks by kind and status.",
		},
		[]string{"kind", "status"}, // status: 'ok', 'error', 'dropped'
	)
)

func IncReconcile(provider, result string) {
	reconcileTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func AddExpiredPayments(n int64) {
	expiredPaymentsTotal.Add(float64(n))
}

func IncSideEffect(kind, status string) {
	sideEffectsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
