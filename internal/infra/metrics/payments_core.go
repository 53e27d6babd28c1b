package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		stagedTotal,
		paymentsTotal,
		paymentsRevenueTotal,
		refundsTotal,
		webhookConfirmTotal,
	)
}

var (
	stagedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staged_transactions_total",
			Help: "Staged financial transactions by kind (charge/refund).",
		},
		[]string{"kind"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by final status (completed/failed/refunded).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_cents_total",
			Help: "Total monetary value of completed payments, in cents.",
		},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund executions by classified kind (full/partial/zero/failed).",
		},
		[]string{"kind"},
	)

	webhookConfirmTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_confirmations_total",
			Help: "Processor confirmations by outcome (applied/noop).",
		},
		[]string{"outcome"},
	)
)

func IncStaged(kind string) {
	stagedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(amount int64) {
	paymentsRevenueTotal.Add(float64(amount))
}

func IncRefund(kind string) {
	refundsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncWebhookConfirm(outcome string) {
	webhookConfirmTotal.WithLabelValues(norm(outcome)).Inc()
}
