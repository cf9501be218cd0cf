package razorpay

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPaiseConversion(t *testing.T) {
	cases := []struct {
		amount string
		paise  int64
	}{
		{"120.00", 12000},
		{"40", 4000},
		{"0.01", 1},
		{"99.999", 10000},
		{"0", 0},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		if err != nil {
			t.Fatalf("bad amount %q: %v", tc.amount, err)
		}
		if got := ToPaise(amount); got != tc.paise {
			t.Fatalf("ToPaise(%s) = %d, want %d", tc.amount, got, tc.paise)
		}
	}

	if got := FromPaise(12000); !got.Equal(decimal.RequireFromString("120")) {
		t.Fatalf("FromPaise(12000) = %s, want 120", got)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"payment.captured"}`)
	signature := ComputeSignature(body, secret)

	if !VerifySignature(body, signature, secret) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifySignature(body, signature, "other_secret") {
		t.Fatal("expected signature with wrong secret to fail")
	}
	if VerifySignature([]byte(`{"event":"tampered"}`), signature, secret) {
		t.Fatal("expected tampered body to fail")
	}
	if VerifySignature(body, "", secret) {
		t.Fatal("expected empty signature to fail")
	}
}

func TestVerifyCheckoutSignature(t *testing.T) {
	secret := "key_secret"
	signature := ComputeSignature([]byte("order_abc|pay_xyz"), secret)

	if !VerifyCheckoutSignature("order_abc", "pay_xyz", signature, secret) {
		t.Fatal("expected checkout signature to verify")
	}
	if VerifyCheckoutSignature("order_abc", "pay_other", signature, secret) {
		t.Fatal("expected mismatched payment id to fail")
	}
}

func TestResponseParsing(t *testing.T) {
	order := orderFromResponse(map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(12000),
		"currency": "INR",
		"receipt":  "FB-20250101000000-abc123",
		"status":   "created",
	})
	if order.ID != "order_abc" || order.AmountPaise != 12000 {
		t.Fatalf("unexpected order %+v", order)
	}

	payment := paymentFromResponse(map[string]interface{}{
		"id":       "pay_xyz",
		"order_id": "order_abc",
		"status":   "captured",
		"amount":   float64(12000),
	})
	if !payment.IsCaptured() {
		t.Fatalf("expected captured payment, got %+v", payment)
	}
	if payment.IsFailed() {
		t.Fatal("captured payment reported as failed")
	}
}
