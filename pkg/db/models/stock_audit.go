package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
)

// StockAudit records an immutable inventory mutation tied to an order.
type StockAudit struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Direction enums.StockDirection `gorm:"column:direction;not null"`
	Quantity  int                  `gorm:"column:quantity;not null"`
	Metadata  json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
