package payments

import (
	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
)

// Actor identifies the authenticated caller driving a payment operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IntentResult carries everything the hosted checkout needs to collect a
// payment for an order.
type IntentResult struct {
	PaymentID       uuid.UUID `json:"paymentId"`
	OrderID         uuid.UUID `json:"orderId"`
	ProviderOrderID string    `json:"providerOrderId"`
	Amount          string    `json:"amount"`
	AmountPaise     int64     `json:"amountPaise"`
	Currency        string    `json:"currency"`
	KeyID           string    `json:"keyId"`
	AlreadyPaid     bool      `json:"alreadyPaid"`
}

// WebhookEvent is the provider payload after signature verification, reduced
// to the fields reconciliation consumes.
type WebhookEvent struct {
	Event             string
	ProviderOrderID   string
	ProviderPaymentID string
	AmountPaise       int64
	ErrorDescription  string
}

// Provider webhook event names handled by reconciliation.
const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookPaymentFailed   = "payment.failed"
)

// VerifyCheckoutInput carries the hosted checkout callback for verification.
type VerifyCheckoutInput struct {
	Actor             Actor
	OrderID           uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// PaymentSucceededEvent is emitted when a payment is confirmed captured.
type PaymentSucceededEvent struct {
	PaymentID         uuid.UUID `json:"payment_id"`
	OrderID           uuid.UUID `json:"order_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	Amount            string    `json:"amount"`
}

// PaymentFailedEvent is emitted when the provider reports a failed payment.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
}

// PaymentRefundedEvent is emitted after a refund is accepted by the provider.
type PaymentRefundedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	RefundID  string    `json:"refund_id"`
	Amount    string    `json:"amount"`
}
