package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for the payment lifecycle.
type PaymentMetrics struct {
	processed   *prometheus.CounterVec
	finalized   *prometheus.CounterVec
	refunded    *prometheus.CounterVec
	withdrawals *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Escrow payments accepted, by transfer method.",
	}, []string{"method"})
	finalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_finalized_total",
		Help: "Escrow payments released to developers.",
	}, []string{"token"})
	refunded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_refunded_total",
		Help: "Escrow payments returned to subscribers.",
	}, []string{"token"})
	withdrawals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_withdrawals_total",
		Help: "Balance withdrawals, by beneficiary kind.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failures_total",
		Help: "Rejected payment operations, by reason code.",
	}, []string{"operation", "code"})
	reg.MustRegister(processed, finalized, refunded, withdrawals, failures)
	return &PaymentMetrics{
		processed:   processed,
		finalized:   finalized,
		refunded:    refunded,
		withdrawals: withdrawals,
		failures:    failures,
	}
}

// IncProcessed increments the processed counter for the transfer method.
func (p *PaymentMetrics) IncProcessed(method string) {
	if p == nil || p.processed == nil {
		return
	}
	p.processed.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncFinalized increments the finalized counter for the token.
func (p *PaymentMetrics) IncFinalized(token string) {
	if p == nil || p.finalized == nil {
		return
	}
	p.finalized.WithLabelValues(normalizeLabel(token)).Inc()
}

// IncRefunded increments the refunded counter for the token.
func (p *PaymentMetrics) IncRefunded(token string) {
	if p == nil || p.refunded == nil {
		return
	}
	p.refunded.WithLabelValues(normalizeLabel(token)).Inc()
}

// IncWithdrawal increments the withdrawal counter for the beneficiary kind.
func (p *PaymentMetrics) IncWithdrawal(kind string) {
	if p == nil || p.withdrawals == nil {
		return
	}
	p.withdrawals.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure increments the failure counter for an operation and error code.
func (p *PaymentMetrics) IncFailure(operation, code string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}
