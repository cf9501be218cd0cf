package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a farmer listing available for purchase.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID      uuid.UUID       `gorm:"column:farmer_id;type:uuid;not null"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Category      string          `gorm:"column:category;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Unit          string          `gorm:"column:unit;not null;default:'kg'"`
	Stock         int             `gorm:"column:stock;not null;default:0"`
	Images        pq.StringArray  `gorm:"column:images;type:text[]"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	AverageRating float64         `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	RatingCount   int             `gorm:"column:rating_count;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
