package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("payment-poll", 250*time.Millisecond)
	m.IncSuccess("payment-poll")
	m.IncFailure("payment-poll")
	m.IncSuccess("")

	if got := testutil.ToFloat64(m.success.WithLabelValues("payment-poll")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("payment-poll")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.success.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty job label to normalize to unknown, got %v", got)
	}
}

func TestCronJobMetricsNilRegisterer(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveDuration("noop", time.Second)
	m.IncSuccess("noop")
	m.IncFailure("noop")
}

func TestCheckoutMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncOrdersPlaced()
	m.IncOrdersPlaced()
	m.IncOrdersCancelled()
	m.IncStockConflicts()
	m.IncWebhookEvent("duplicate")

	if got := testutil.ToFloat64(m.ordersPlaced); got != 2 {
		t.Fatalf("expected 2 orders placed, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("expected 1 duplicate webhook, got %v", got)
	}
}
