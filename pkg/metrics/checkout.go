package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order placement and payment reconciliation outcomes.
type CheckoutMetrics struct {
	ordersPlaced    prometheus.Counter
	ordersCancelled prometheus.Counter
	stockConflicts  prometheus.Counter
	webhookEvents   *prometheus.CounterVec
}

// NewCheckoutMetrics registers checkout counters on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created from checkout.",
	})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by buyers or reconciliation.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Checkouts rejected because stock ran out.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook events by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersPlaced, ordersCancelled, stockConflicts, webhookEvents)
	return &CheckoutMetrics{
		ordersPlaced:    ordersPlaced,
		ordersCancelled: ordersCancelled,
		stockConflicts:  stockConflicts,
		webhookEvents:   webhookEvents,
	}
}

// IncOrdersPlaced records a successful checkout.
func (m *CheckoutMetrics) IncOrdersPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncOrdersCancelled records a cancellation.
func (m *CheckoutMetrics) IncOrdersCancelled() {
	if m == nil || m.ordersCancelled == nil {
		return
	}
	m.ordersCancelled.Inc()
}

// IncStockConflicts records a checkout rejected on stock.
func (m *CheckoutMetrics) IncStockConflicts() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// IncWebhookEvent records a webhook outcome (processed, duplicate, rejected).
func (m *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}
