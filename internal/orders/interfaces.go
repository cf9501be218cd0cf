package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/internal/inventory"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
)

// Repository defines order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockMutator interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []inventory.Line) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []inventory.Line) error
}

// refundRequester triggers a refund for the order's captured payment. Failures
// are logged and never block cancellation.
type refundRequester interface {
	RefundForCancelledOrder(ctx context.Context, orderID uuid.UUID) error
}
