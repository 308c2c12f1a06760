package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	transfers prometheus.Counter
}

type paymentMetrics struct {
	executed prometheus.Counter
	failed   *prometheus.CounterVec
}

var (
	ledgerOnce      sync.Once
	ledgerRegistry  *ledgerMetrics
	paymentOnce     sync.Once
	paymentRegistry *paymentMetrics
)

// Ledger returns the metrics registry tracking balance movements.
func Ledger() *ledgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			transfers: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "httpusd",
				Subsystem: "ledger",
				Name:      "transfers_total",
				Help:      "Count of applied balance transfers, including fee legs.",
			}),
		}
		prometheus.MustRegister(ledgerRegistry.transfers)
	})
	return ledgerRegistry
}

// RecordTransfer increments the transfer counter.
func (m *ledgerMetrics) RecordTransfer() {
	if m == nil {
		return
	}
	m.transfers.Inc()
}

// Payments returns the metrics registry tracking authorization outcomes.
func Payments() *paymentMetrics {
	paymentOnce.Do(func() {
		paymentRegistry = &paymentMetrics{
			executed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "httpusd",
				Subsystem: "payments",
				Name:      "executed_total",
				Help:      "Count of settled payment authorizations.",
			}),
			failed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "httpusd",
				Subsystem: "payments",
				Name:      "failed_total",
				Help:      "Count of rejected payment authorizations segmented by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(paymentRegistry.executed, paymentRegistry.failed)
	})
	return paymentRegistry
}

// RecordExecuted increments the settled-payment counter.
func (m *paymentMetrics) RecordExecuted() {
	if m == nil {
		return
	}
	m.executed.Inc()
}

// RecordFailed increments the rejection counter for the supplied reason.
func (m *paymentMetrics) RecordFailed(reason string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(reason))
	if normalized == "" {
		normalized = "unknown"
	}
	m.failed.WithLabelValues(normalized).Inc()
}
