package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/razorpay"
)

// RefundForCancelledOrder refunds the captured payment of a cancelled order.
// Orders without a captured payment are a no-op, so callers can invoke it
// unconditionally after cancellation.
func (s *service) RefundForCancelledOrder(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == enums.PaymentStatusRefunded {
		return nil
	}
	if payment.Status != enums.PaymentStatusSuccess {
		return nil
	}
	if payment.ProviderPaymentID == nil || *payment.ProviderPaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "captured payment has no provider payment id")
	}

	refund, err := s.provider.RefundPayment(ctx, *payment.ProviderPaymentID, razorpay.ToPaise(payment.Amount), map[string]interface{}{
		"reason":   "order_cancelled",
		"order_id": orderID.String(),
	})
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateStatusIf(ctx, payment.ID, enums.PaymentStatusSuccess, map[string]any{
			"status":      enums.PaymentStatusRefunded,
			"refund_id":   refund.ID,
			"refunded_at": time.Now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
		}
		if !ok {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: PaymentRefundedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				RefundID:  refund.ID,
				Amount:    payment.Amount.StringFixed(2),
			},
		})
	})
}
