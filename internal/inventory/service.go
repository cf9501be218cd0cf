package inventory

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
)

// Line identifies a stock mutation for a single product.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service mutates product stock inside a caller-owned transaction. Reserve is
// all-or-nothing: the first line that cannot be satisfied fails the call, and
// the caller's rollback reverts any earlier decrements.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) error
}

type service struct{}

// NewService returns the default stock mutation implementation.
func NewService() Service {
	return service{}
}

func (service) Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reserve")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, line.Quantity, line.ProductID, line.Quantity)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID.String(),
					"requested":  line.Quantity,
				})
		}

		if err := writeAudit(ctx, tx, orderID, line, enums.StockDirectionReserve); err != nil {
			return err
		}
	}
	return nil
}

func (service) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, line.Quantity, line.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}

		if err := writeAudit(ctx, tx, orderID, line, enums.StockDirectionRelease); err != nil {
			return err
		}
	}
	return nil
}

func writeAudit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, line Line, direction enums.StockDirection) error {
	meta, _ := json.Marshal(map[string]any{"source": "inventory"})
	audit := models.StockAudit{
		ID:        uuid.New(),
		ProductID: line.ProductID,
		OrderID:   orderID,
		Direction: direction,
		Quantity:  line.Quantity,
		Metadata:  meta,
	}
	if err := tx.WithContext(ctx).Create(&audit).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write stock audit")
	}
	return nil
}
