package orders

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/internal/cart"
	"github.com/farmbasket-dev/farmbasket-backend/internal/inventory"
	product "github.com/farmbasket-dev/farmbasket-backend/internal/products"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingRefunder struct {
	orderIDs []uuid.UUID
	err      error
}

func (r *recordingRefunder) RefundForCancelledOrder(ctx context.Context, orderID uuid.UUID) error {
	r.orderIDs = append(r.orderIDs, orderID)
	return r.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.StockAudit{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingRefunder) {
	t.Helper()
	db := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	refunder := &recordingRefunder{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Carts:    cart.NewRepository(db),
		Products: product.NewRepository(db),
		Stock:    inventory.NewService(),
		Tx:       testTxRunner{db: db},
		Outbox:   outbox.NewService(outbox.NewRepository(db), logg),
		Refunds:  refunder,
		Logger:   logg,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, db, refunder
}

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int, active bool) models.Product {
	t.Helper()
	row := models.Product{
		ID:       uuid.New(),
		FarmerID: uuid.New(),
		Name:     "Tomatoes",
		Category: "vegetables",
		Price:    decimal.RequireFromString(price),
		Unit:     "kg",
		Stock:    stock,
		IsActive: active,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return row
}

func seedCart(t *testing.T, db *gorm.DB, buyerID uuid.UUID, lines map[uuid.UUID]int) {
	t.Helper()
	cartRow := models.Cart{ID: uuid.New(), BuyerID: buyerID}
	if err := db.Create(&cartRow).Error; err != nil {
		t.Fatalf("seed cart failed: %v", err)
	}
	for productID, qty := range lines {
		item := models.CartItem{
			ID:         uuid.New(),
			CartID:     cartRow.ID,
			ProductID:  productID,
			Quantity:   qty,
			PriceAtAdd: decimal.RequireFromString("1.00"),
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("seed cart item failed: %v", err)
		}
	}
}

func productStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var row models.Product
	if err := db.First(&row, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	return row.Stock
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	listing := seedProduct(t, db, "40.00", 5, true)
	seedCart(t, db, buyerID, map[uuid.UUID]int{listing.ID: 3})

	result, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.TotalAmount != "120.00" {
		t.Fatalf("expected total 120.00, got %s", result.TotalAmount)
	}
	if result.OrderNumber == "" {
		t.Fatal("expected an order number")
	}

	if got := productStock(t, db, listing.ID); got != 2 {
		t.Fatalf("expected stock 2 after checkout, got %d", got)
	}

	var itemCount int64
	if err := db.Model(&models.CartItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected cart cleared, found %d items", itemCount)
	}

	var order models.Order
	if err := db.Preload("Items").First(&order, "id = ?", result.OrderID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order.Status != enums.OrderStatusCreated {
		t.Fatalf("expected status CREATED, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice.StringFixed(2) != "40.00" {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}

	var events int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&events).Error; err != nil {
		t.Fatalf("count outbox events failed: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one order_created event, got %d", events)
	}
}

func TestCheckoutSnapshotsLivePriceNotPriceAtAdd(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	listing := seedProduct(t, db, "55.50", 10, true)
	seedCart(t, db, buyerID, map[uuid.UUID]int{listing.ID: 2})

	result, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.TotalAmount != "111.00" {
		t.Fatalf("expected live-price total 111.00, got %s", result.TotalAmount)
	}
}

func TestCheckoutInsufficientStockAborts(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	scarce := seedProduct(t, db, "20.00", 5, true)
	plenty := seedProduct(t, db, "10.00", 50, true)
	seedCart(t, db, buyerID, map[uuid.UUID]int{plenty.ID: 2, scarce.ID: 10})

	_, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if got := productStock(t, db, scarce.ID); got != 5 {
		t.Fatalf("expected scarce stock unchanged at 5, got %d", got)
	}
	if got := productStock(t, db, plenty.ID); got != 50 {
		t.Fatalf("expected plenty stock unchanged at 50, got %d", got)
	}

	var orders int64
	if err := db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected no orders, got %d", orders)
	}

	var itemCount int64
	if err := db.Model(&models.CartItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if itemCount != 2 {
		t.Fatalf("expected cart untouched, got %d items", itemCount)
	}
}

func TestCheckoutSkipsInactiveProducts(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	active := seedProduct(t, db, "30.00", 10, true)
	retired := seedProduct(t, db, "99.00", 10, false)
	seedCart(t, db, buyerID, map[uuid.UUID]int{active.ID: 1, retired.ID: 1})

	result, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.TotalAmount != "30.00" {
		t.Fatalf("expected total 30.00 without the inactive line, got %s", result.TotalAmount)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ProductID != retired.ID {
		t.Fatalf("expected the inactive product skipped, got %+v", result.Skipped)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	seedCart(t, db, buyerID, nil)

	_, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}

	_, err = svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: uuid.New(), Role: enums.RoleBuyer}})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart error for missing cart, got %v", err)
	}
}

func TestCheckoutAllLinesUnavailable(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	retired := seedProduct(t, db, "10.00", 10, false)
	seedCart(t, db, buyerID, map[uuid.UUID]int{retired.ID: 1})

	_, err := svc.Checkout(ctx, CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNoValidItems) {
		t.Fatalf("expected no valid items error, got %v", err)
	}
}

func checkoutOrder(t *testing.T, svc Service, db *gorm.DB, buyerID uuid.UUID, qty int) uuid.UUID {
	t.Helper()
	listing := seedProduct(t, db, "40.00", 10, true)
	seedCart(t, db, buyerID, map[uuid.UUID]int{listing.ID: qty})
	result, err := svc.Checkout(context.Background(), CheckoutInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return result.OrderID
}

func TestCancelRestoresStockAndRequestsRefund(t *testing.T) {
	svc, db, refunder := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 3)

	// Simulate a captured payment before cancellation.
	payment := models.Payment{
		ID:              uuid.New(),
		OrderID:         orderID,
		Status:          enums.PaymentStatusSuccess,
		Amount:          decimal.RequireFromString("120.00"),
		Currency:        enums.CurrencyINR,
		ProviderOrderID: "order_test123",
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	if err := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", enums.OrderStatusPaid).Error; err != nil {
		t.Fatalf("mark order paid failed: %v", err)
	}

	var before models.Order
	if err := db.Preload("Items").First(&before, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	stockBefore := productStock(t, db, before.Items[0].ProductID)

	err := svc.Cancel(ctx, CancelInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}, OrderID: orderID})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	var after models.Order
	if err := db.Preload("Items").First(&after, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if after.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", after.Status)
	}
	if after.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}
	if got := productStock(t, db, after.Items[0].ProductID); got != stockBefore+3 {
		t.Fatalf("expected stock restored to %d, got %d", stockBefore+3, got)
	}
	if len(refunder.orderIDs) != 1 || refunder.orderIDs[0] != orderID {
		t.Fatalf("expected one refund request for the order, got %+v", refunder.orderIDs)
	}
}

func TestCancelSucceedsWhenRefundFails(t *testing.T) {
	svc, db, refunder := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 1)

	payment := models.Payment{
		ID:              uuid.New(),
		OrderID:         orderID,
		Status:          enums.PaymentStatusSuccess,
		Amount:          decimal.RequireFromString("40.00"),
		Currency:        enums.CurrencyINR,
		ProviderOrderID: "order_test456",
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	refunder.err = fmt.Errorf("provider unavailable")

	err := svc.Cancel(ctx, CancelInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}, OrderID: orderID})
	if err != nil {
		t.Fatalf("cancel must not fail on refund errors, got: %v", err)
	}

	var after models.Order
	if err := db.First(&after, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if after.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED despite refund failure, got %s", after.Status)
	}
}

func TestCancelRejectsShippedOrder(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 1)

	if err := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", enums.OrderStatusShipped).Error; err != nil {
		t.Fatalf("mark shipped failed: %v", err)
	}

	err := svc.Cancel(ctx, CancelInput{Actor: Actor{UserID: buyerID, Role: enums.RoleBuyer}, OrderID: orderID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotCancellable) {
		t.Fatalf("expected not cancellable, got %v", err)
	}
}

func TestCancelForbiddenForOtherBuyer(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	orderID := checkoutOrder(t, svc, db, uuid.New(), 1)

	err := svc.Cancel(ctx, CancelInput{Actor: Actor{UserID: uuid.New(), Role: enums.RoleBuyer}, OrderID: orderID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 1)
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	if err := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", enums.OrderStatusPaid).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	steps := []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	}
	for _, next := range steps {
		if err := svc.UpdateStatus(ctx, UpdateStatusInput{Actor: admin, OrderID: orderID, Next: next}); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	var after models.Order
	if err := db.First(&after, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if after.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", after.Status)
	}
	if after.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
}

func TestUpdateStatusRejectsIllegalJump(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	orderID := checkoutOrder(t, svc, db, uuid.New(), 1)
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	err := svc.UpdateStatus(ctx, UpdateStatusInput{Actor: admin, OrderID: orderID, Next: enums.OrderStatusShipped})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for CREATED -> SHIPPED, got %v", err)
	}
}

func TestUpdateStatusRequiresFarmerOrAdmin(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 1)

	err := svc.UpdateStatus(ctx, UpdateStatusInput{
		Actor:   Actor{UserID: buyerID, Role: enums.RoleBuyer},
		OrderID: orderID,
		Next:    enums.OrderStatusConfirmed,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for buyer, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	orderID := checkoutOrder(t, svc, db, buyerID, 1)

	order, err := svc.Get(ctx, Actor{UserID: buyerID, Role: enums.RoleBuyer}, orderID)
	if err != nil {
		t.Fatalf("owner get failed: %v", err)
	}
	if order.ID != orderID {
		t.Fatalf("expected order %s, got %s", orderID, order.ID)
	}

	if _, err := svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.RoleBuyer}, orderID); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	if _, err := svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, orderID); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}

	if _, err := svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.RoleBuyer}, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
