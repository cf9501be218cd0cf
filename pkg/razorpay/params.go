package razorpay

import (
	"github.com/shopspring/decimal"
)

var paiseFactor = decimal.NewFromInt(100)

// ToPaise converts a rupee amount into the integer minor unit the provider
// expects. The amount is rounded to 2 decimals first.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(paiseFactor).IntPart()
}

// FromPaise converts a provider minor-unit amount back into rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(paiseFactor)
}

// OrderCreateParams describes a provider order creation request.
type OrderCreateParams struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]interface{}
}

func (p OrderCreateParams) toRequest() map[string]interface{} {
	data := map[string]interface{}{
		"amount":   p.AmountPaise,
		"currency": p.Currency,
	}
	if p.Receipt != "" {
		data["receipt"] = p.Receipt
	}
	if len(p.Notes) > 0 {
		data["notes"] = p.Notes
	}
	return data
}

// Order is the subset of the provider order resource the platform consumes.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string
}

// Payment is the subset of the provider payment resource the platform consumes.
type Payment struct {
	ID               string
	OrderID          string
	Status           string
	AmountPaise      int64
	Currency         string
	Method           string
	ErrorDescription string
}

// Provider payment statuses.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

// IsCaptured reports whether the provider considers the payment settled.
func (p Payment) IsCaptured() bool {
	return p.Status == PaymentStatusCaptured
}

// IsFailed reports whether the provider marked the payment failed.
func (p Payment) IsFailed() bool {
	return p.Status == PaymentStatusFailed
}

// Refund is the subset of the provider refund resource the platform consumes.
type Refund struct {
	ID          string
	PaymentID   string
	AmountPaise int64
	Status      string
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(m map[string]interface{}, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func orderFromResponse(resp map[string]interface{}) *Order {
	return &Order{
		ID:          stringField(resp, "id"),
		AmountPaise: int64Field(resp, "amount"),
		Currency:    stringField(resp, "currency"),
		Receipt:     stringField(resp, "receipt"),
		Status:      stringField(resp, "status"),
	}
}

func paymentFromResponse(resp map[string]interface{}) *Payment {
	return &Payment{
		ID:               stringField(resp, "id"),
		OrderID:          stringField(resp, "order_id"),
		Status:           stringField(resp, "status"),
		AmountPaise:      int64Field(resp, "amount"),
		Currency:         stringField(resp, "currency"),
		Method:           stringField(resp, "method"),
		ErrorDescription: stringField(resp, "error_description"),
	}
}

func paymentsFromCollection(resp map[string]interface{}) []Payment {
	items, ok := resp["items"].([]interface{})
	if !ok {
		return nil
	}
	payments := make([]Payment, 0, len(items))
	for _, item := range items {
		entity, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		payments = append(payments, *paymentFromResponse(entity))
	}
	return payments
}

func refundFromResponse(resp map[string]interface{}) *Refund {
	return &Refund{
		ID:          stringField(resp, "id"),
		PaymentID:   stringField(resp, "payment_id"),
		AmountPaise: int64Field(resp, "amount"),
		Status:      stringField(resp, "status"),
	}
}
