package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.StockAudit{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		FarmerID: uuid.New(),
		Name:     "Alphonso Mangoes",
		Category: "fruits",
		Price:    decimal.RequireFromString("40.00"),
		Unit:     "kg",
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return product
}

func reloadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	return product.Stock
}

func TestReserveDecrementsStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	product := seedProduct(t, db, 5)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, orderID, []Line{{ProductID: product.ID, Quantity: 3}})
	})
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	if got := reloadStock(t, db, product.ID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	var audit models.StockAudit
	if err := db.First(&audit, "order_id = ?", orderID).Error; err != nil {
		t.Fatalf("expected stock audit row: %v", err)
	}
	if audit.Direction != enums.StockDirectionReserve || audit.Quantity != 3 {
		t.Fatalf("unexpected audit row %+v", audit)
	}
}

func TestReserveInsufficientStockLeavesStockUnchanged(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	product := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, uuid.New(), []Line{{ProductID: product.ID, Quantity: 10}})
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if got := reloadStock(t, db, product.ID); got != 5 {
		t.Fatalf("expected stock unchanged at 5, got %d", got)
	}

	var count int64
	if err := db.Model(&models.StockAudit{}).Count(&count).Error; err != nil {
		t.Fatalf("count audits failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no audit rows after rollback, got %d", count)
	}
}

func TestReservePartialFailureRollsBackEarlierLines(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	first := seedProduct(t, db, 5)
	second := seedProduct(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, uuid.New(), []Line{
			{ProductID: first.ID, Quantity: 2},
			{ProductID: second.ID, Quantity: 4},
		})
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if got := reloadStock(t, db, first.ID); got != 5 {
		t.Fatalf("expected first product stock restored to 5, got %d", got)
	}
	if got := reloadStock(t, db, second.ID); got != 1 {
		t.Fatalf("expected second product stock unchanged at 1, got %d", got)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	product := seedProduct(t, db, 2)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, orderID, []Line{{ProductID: product.ID, Quantity: 3}})
	})
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if got := reloadStock(t, db, product.ID); got != 5 {
		t.Fatalf("expected stock 5 after release, got %d", got)
	}

	var audit models.StockAudit
	if err := db.First(&audit, "order_id = ?", orderID).Error; err != nil {
		t.Fatalf("expected stock audit row: %v", err)
	}
	if audit.Direction != enums.StockDirectionRelease {
		t.Fatalf("unexpected audit direction %s", audit.Direction)
	}
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	product := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, uuid.New(), []Line{{ProductID: product.ID, Quantity: 0}})
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
