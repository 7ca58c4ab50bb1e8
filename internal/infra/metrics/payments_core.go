package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		fulfillmentsTotal,
		paymentsRevenueTotal,
		balanceCreditsTotal,
	)
}

var (
	// result: applied|duplicate|error
	fulfillmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_fulfillments_total",
			Help: "Fulfillment attempts by purchase kind, trigger source and result.",
		},
		[]string{"kind", "source", "result"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of fulfilled payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// kind: topup|referral|debit
	balanceCreditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_changes_total",
			Help: "Balance mutations in the reference currency by kind.",
		},
		[]string{"kind"},
	)
)

func IncFulfillment(kind, source, result string) {
	fulfillmentsTotal.WithLabelValues(norm(kind), norm(source), norm(result)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func AddBalanceChange(kind string, amount decimal.Decimal) {
	balanceCreditsTotal.WithLabelValues(norm(kind)).Add(amount.Abs().InexactFloat64())
}
