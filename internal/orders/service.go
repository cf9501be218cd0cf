package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/internal/cart"
	"github.com/farmbasket-dev/farmbasket-backend/internal/inventory"
	product "github.com/farmbasket-dev/farmbasket-backend/internal/products"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/metrics"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
)

const (
	skipReasonNotFound = "product_not_found"
	skipReasonInactive = "product_inactive"
)

// Service defines order lifecycle operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor Actor, limit, offset int) ([]models.Order, error)
	Cancel(ctx context.Context, input CancelInput) error
	UpdateStatus(ctx context.Context, input UpdateStatusInput) error
}

type service struct {
	repo     Repository
	carts    *cart.Repository
	products *product.Repository
	stock    stockMutator
	tx       txRunner
	outbox   outboxPublisher
	refunds  refundRequester
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Carts    *cart.Repository
	Products *product.Repository
	Stock    stockMutator
	Tx       txRunner
	Outbox   outboxPublisher
	Refunds  refundRequester
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock mutator required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		products: params.Products,
		stock:    params.Stock,
		tx:       params.Tx,
		outbox:   params.Outbox,
		refunds:  params.Refunds,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}

	var result *CheckoutResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		buyerCart, err := cartRepo.FindByBuyer(ctx, input.Actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(buyerCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		productIDs := make([]uuid.UUID, 0, len(buyerCart.Items))
		for _, item := range buyerCart.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		orderID := uuid.New()
		skipped := []SkippedLine{}
		lines := []inventory.Line{}
		orderItems := []models.OrderItem{}
		total := decimal.Zero

		for _, item := range buyerCart.Items {
			listing, ok := catalog[item.ProductID]
			if !ok {
				skipped = append(skipped, SkippedLine{ProductID: item.ProductID, Reason: skipReasonNotFound})
				continue
			}
			if !listing.IsActive {
				skipped = append(skipped, SkippedLine{ProductID: item.ProductID, Reason: skipReasonInactive})
				continue
			}

			unit := listing.Price.Round(2)
			lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			total = total.Add(lineTotal)

			lines = append(lines, inventory.Line{ProductID: listing.ID, Quantity: item.Quantity})
			orderItems = append(orderItems, models.OrderItem{
				ID:          uuid.New(),
				OrderID:     orderID,
				ProductID:   listing.ID,
				FarmerID:    listing.FarmerID,
				ProductName: listing.Name,
				Quantity:    item.Quantity,
				UnitPrice:   unit,
				LineTotal:   lineTotal,
			})
		}

		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeNoValidItems, "no purchasable items in cart").
				WithDetails(map[string]any{"skipped": len(skipped)})
		}

		if err := s.stock.Reserve(ctx, tx, orderID, lines); err != nil {
			return err
		}

		order := &models.Order{
			ID:              orderID,
			OrderNumber:     generateOrderNumber(time.Now()),
			BuyerID:         input.Actor.UserID,
			Status:          enums.OrderStatusCreated,
			TotalAmount:     total.Round(2),
			Currency:        enums.CurrencyINR,
			DeliveryAddress: input.DeliveryAddress,
			Notes:           input.Notes,
		}
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		if err := cartRepo.ClearItems(ctx, buyerCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BuyerID:     order.BuyerID,
				TotalAmount: order.TotalAmount.StringFixed(2),
				ItemCount:   len(orderItems),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &CheckoutResult{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			TotalAmount: order.TotalAmount.StringFixed(2),
			Skipped:     skipped,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.IncStockConflicts()
		}
		return nil, err
	}

	s.metrics.IncOrdersPlaced()
	return result, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, limit, offset int) ([]models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	rows, err := s.repo.ListByBuyer(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var refundNeeded bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := authorizeCancel(input.Actor, order); err != nil {
			return err
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeNotCancellable, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		lines := make([]inventory.Line, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if err := s.stock.Release(ctx, tx, order.ID, lines); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		refundNeeded = order.Payment != nil && order.Payment.Status == enums.PaymentStatusSuccess

		reason := ""
		if input.Reason != nil {
			reason = *input.Reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BuyerID:     order.BuyerID,
				Reason:      reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.metrics.IncOrdersCancelled()

	// Refund runs outside the cancel transaction. Cancellation has already
	// committed; a refund failure is surfaced in logs and retried by support.
	if refundNeeded && s.refunds != nil {
		if err := s.refunds.RefundForCancelledOrder(ctx, input.OrderID); err != nil {
			logCtx := s.logg.WithField(ctx, "order_id", input.OrderID.String())
			s.logg.Error(logCtx, "refund for cancelled order failed", err)
		}
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.RoleFarmer && input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only farmers or admins can update order status")
	}
	if !input.Next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.Next == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(input.Next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{
					"from": order.Status.String(),
					"to":   input.Next.String(),
				})
		}

		updates := map[string]any{"status": input.Next}
		if input.Next == enums.OrderStatusDelivered {
			updates["delivered_at"] = time.Now()
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStateChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        order.Status,
				To:          input.Next,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func authorizeRead(actor Actor, order *models.Order) error {
	if actor.Role == enums.RoleAdmin {
		return nil
	}
	if order.BuyerID == actor.UserID {
		return nil
	}
	if actor.Role == enums.RoleFarmer {
		for _, item := range order.Items {
			if item.FarmerID == actor.UserID {
				return nil
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
}

func authorizeCancel(actor Actor, order *models.Order) error {
	if actor.Role == enums.RoleAdmin {
		return nil
	}
	if order.BuyerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}

func generateOrderNumber(now time.Time) string {
	suffix := uuid.NewString()
	return fmt.Sprintf("FB-%s-%s", now.Format("20060102150405"), suffix[:6])
}
