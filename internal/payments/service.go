package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/db"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/metrics"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/razorpay"
)

// Service defines payment lifecycle operations.
type Service interface {
	CreateIntent(ctx context.Context, actor Actor, orderID uuid.UUID) (*IntentResult, error)
	GetForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Payment, error)
	VerifyCheckout(ctx context.Context, input VerifyCheckoutInput) error
	HandleWebhookEvent(ctx context.Context, event WebhookEvent) error
	PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error)
	RefundForCancelledOrder(ctx context.Context, orderID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// providerGateway is the slice of the provider client the payment lifecycle
// uses. Satisfied by razorpay.Client.
type providerGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	FetchPaymentsForOrder(ctx context.Context, providerOrderID string) ([]razorpay.Payment, error)
	RefundPayment(ctx context.Context, paymentID string, amountPaise int64, notes map[string]interface{}) (*razorpay.Refund, error)
	VerifyCheckout(orderID, paymentID, signature string) bool
	KeyID() string
	Currency() string
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outboxPublisher
	provider providerGateway
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Provider providerGateway
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// NewService builds a payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		provider: params.Provider,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, actor Actor, orderID uuid.UUID) (*IntentResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeOrderAccess(actor, order); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	// An existing non-failed intent is returned as-is so client retries and
	// reconciliation races never surface spurious duplicates. A captured
	// payment reports alreadyPaid instead of erroring.
	if existing != nil && existing.Status != enums.PaymentStatusFailed {
		return s.intentResult(existing), nil
	}

	if order.Status != enums.OrderStatusCreated && order.Status != enums.OrderStatusPaymentPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	amountPaise := razorpay.ToPaise(order.TotalAmount)
	providerOrder, err := s.provider.CreateOrder(ctx, razorpay.OrderCreateParams{
		AmountPaise: amountPaise,
		Receipt:     order.OrderNumber,
		Notes:       map[string]interface{}{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	payment := existing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing == nil {
			payment = &models.Payment{
				ID:              uuid.New(),
				OrderID:         order.ID,
				Status:          enums.PaymentStatusCreated,
				Amount:          order.TotalAmount,
				Currency:        order.Currency,
				ProviderOrderID: providerOrder.ID,
			}
			if err := repo.Create(ctx, payment); err != nil {
				if db.IsUniqueViolation(err, "payments_order_id_key") {
					// Lost the creation race; the winner's record is the intent.
					winner, readErr := repo.FindByOrderID(ctx, order.ID)
					if readErr != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "re-read payment after race")
					}
					payment = winner
					return nil
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		} else {
			// Retry after a failed attempt gets a fresh provider order.
			ok, err := repo.UpdateStatusIf(ctx, existing.ID, enums.PaymentStatusFailed, map[string]any{
				"status":              enums.PaymentStatusCreated,
				"provider_order_id":   providerOrder.ID,
				"provider_payment_id": nil,
				"provider_signature":  nil,
				"failure_reason":      nil,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset failed payment")
			}
			if !ok {
				winner, readErr := repo.FindByOrderID(ctx, order.ID)
				if readErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "re-read payment after race")
				}
				payment = winner
				return nil
			}
			payment.Status = enums.PaymentStatusCreated
			payment.ProviderOrderID = providerOrder.ID
		}

		if _, err := repo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusCreated, enums.OrderStatusPaymentPending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move order to payment pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.intentResult(payment), nil
}

func (s *service) intentResult(payment *models.Payment) *IntentResult {
	return &IntentResult{
		PaymentID:       payment.ID,
		OrderID:         payment.OrderID,
		ProviderOrderID: payment.ProviderOrderID,
		Amount:          payment.Amount.StringFixed(2),
		AmountPaise:     razorpay.ToPaise(payment.Amount),
		Currency:        s.provider.Currency(),
		KeyID:           s.provider.KeyID(),
		AlreadyPaid:     payment.Status == enums.PaymentStatusSuccess,
	}
}

func (s *service) GetForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeOrderAccess(actor, order); err != nil {
		return nil, err
	}
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func authorizeOrderAccess(actor Actor, order *models.Order) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.RoleAdmin || order.BuyerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
}
