package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
)

// Payment tracks the provider-side payment lifecycle for an order. The unique
// order_id constraint enforces one payment row per order.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:payments_order_id_key"`
	Status            enums.PaymentStatus `gorm:"column:status;not null;default:'CREATED'"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;not null;default:'INR'"`
	ProviderOrderID   string              `gorm:"column:provider_order_id;not null"`
	ProviderPaymentID *string             `gorm:"column:provider_payment_id"`
	ProviderSignature *string             `gorm:"column:provider_signature"`
	RefundID          *string             `gorm:"column:refund_id"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
