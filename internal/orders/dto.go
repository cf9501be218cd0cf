package orders

import (
	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/types"
)

// Actor identifies the authenticated caller driving an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CheckoutInput carries everything needed to convert a cart into an order.
type CheckoutInput struct {
	Actor           Actor
	DeliveryAddress *types.Address
	Notes           *string
}

// SkippedLine reports a cart line dropped during checkout validation.
type SkippedLine struct {
	ProductID uuid.UUID `json:"productId"`
	Reason    string    `json:"reason"`
}

// CheckoutResult is returned after a successful checkout.
type CheckoutResult struct {
	OrderID     uuid.UUID     `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	TotalAmount string        `json:"totalAmount"`
	Skipped     []SkippedLine `json:"skipped,omitempty"`
}

// CancelInput carries the data needed to cancel an order.
type CancelInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Reason  *string
}

// UpdateStatusInput moves an order along its fulfillment lifecycle.
type UpdateStatusInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Next    enums.OrderStatus
}

// OrderCreatedEvent is emitted when a checkout commits.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	TotalAmount string    `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
}

// OrderCancelledEvent is emitted when a cancellation commits.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderStateChangedEvent is emitted on fulfillment lifecycle transitions.
type OrderStateChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}
