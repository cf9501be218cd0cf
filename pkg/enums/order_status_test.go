package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusCreated, OrderStatusPaymentPending},
		{OrderStatusCreated, OrderStatusCancelled},
		{OrderStatusPaymentPending, OrderStatusPaid},
		{OrderStatusPaymentPending, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusConfirmed},
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusCreated, OrderStatusPaid},
		{OrderStatusConfirmed, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusCreated},
		{OrderStatusDelivered, OrderStatusShipped},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCreated, OrderStatusPaymentPending, OrderStatusPaid} {
		if !s.IsCancellable() {
			t.Fatalf("expected %s to be cancellable", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		if s.IsCancellable() {
			t.Fatalf("expected %s to not be cancellable", s)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	if !PaymentStatusCreated.CanTransitionTo(PaymentStatusSuccess) {
		t.Fatal("CREATED -> SUCCESS should be allowed")
	}
	if !PaymentStatusSuccess.CanTransitionTo(PaymentStatusRefunded) {
		t.Fatal("SUCCESS -> REFUNDED should be allowed")
	}
	if PaymentStatusFailed.CanTransitionTo(PaymentStatusSuccess) {
		t.Fatal("FAILED -> SUCCESS must be denied; a new provider order is required")
	}
	if PaymentStatusRefunded.CanTransitionTo(PaymentStatusSuccess) {
		t.Fatal("REFUNDED is terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("PAID"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("paid"); err == nil {
		t.Fatal("expected error for lowercase input")
	}
}
