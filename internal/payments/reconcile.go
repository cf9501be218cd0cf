package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/outbox"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/razorpay"
)

const (
	webhookOutcomeProcessed = "processed"
	webhookOutcomeDuplicate = "duplicate"
	webhookOutcomeRejected  = "rejected"
	webhookOutcomeIgnored   = "ignored"
)

// HandleWebhookEvent applies a verified provider webhook to the payment and
// order rows. Redelivered events for an already-settled payment are no-ops.
func (s *service) HandleWebhookEvent(ctx context.Context, event WebhookEvent) error {
	switch event.Event {
	case WebhookPaymentCaptured:
		return s.applyCapture(ctx, event.ProviderOrderID, event.ProviderPaymentID, event.AmountPaise)
	case WebhookPaymentFailed:
		return s.applyFailure(ctx, event.ProviderOrderID, event.ProviderPaymentID, event.ErrorDescription)
	default:
		logCtx := s.logg.WithField(ctx, "event", event.Event)
		s.logg.Info(logCtx, "ignoring unhandled provider webhook event")
		s.metrics.IncWebhookEvent(webhookOutcomeIgnored)
		return nil
	}
}

// VerifyCheckout confirms the hosted checkout callback. The signature proves
// the callback came from the provider; the payment is then fetched to confirm
// capture and amount before the order is marked paid.
func (s *service) VerifyCheckout(ctx context.Context, input VerifyCheckoutInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !s.provider.VerifyCheckout(input.ProviderOrderID, input.ProviderPaymentID, input.Signature) {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "checkout signature verification failed")
	}

	order, err := s.repo.FindOrderByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeOrderAccess(input.Actor, order); err != nil {
		return err
	}
	payment, err := s.repo.FindByOrderID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no payment for order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.ProviderOrderID != input.ProviderOrderID {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "provider order does not match payment")
	}

	providerPayment, err := s.provider.FetchPayment(ctx, input.ProviderPaymentID)
	if err != nil {
		return err
	}
	switch {
	case providerPayment.IsCaptured():
		return s.applyCapture(ctx, payment.ProviderOrderID, providerPayment.ID, providerPayment.AmountPaise)
	case providerPayment.IsFailed():
		return s.applyFailure(ctx, payment.ProviderOrderID, providerPayment.ID, providerPayment.ErrorDescription)
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment not captured yet").
			WithDetails(map[string]any{"provider_status": providerPayment.Status})
	}
}

// PollPending reconciles CREATED payments whose webhook may have been lost.
// The provider payment id is unknown until a webhook or checkout callback
// arrives, so the poll asks the provider for the attempts recorded against
// each payment's provider order instead.
func (s *service) PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-minAge)
	rows, err := s.repo.ListStaleCreated(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payments")
	}

	reconciled := 0
	for _, row := range rows {
		if row.ProviderOrderID == "" {
			continue
		}
		attempts, err := s.provider.FetchPaymentsForOrder(ctx, row.ProviderOrderID)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "payment_id", row.ID.String())
			s.logg.Error(logCtx, "poll fetch order payments failed", err)
			continue
		}

		// One captured attempt settles the payment regardless of earlier
		// declines. Only all-failed attempts mark it failed.
		var captured, failed *razorpay.Payment
		for i := range attempts {
			attempt := &attempts[i]
			if attempt.IsCaptured() {
				captured = attempt
				break
			}
			if attempt.IsFailed() {
				failed = attempt
			}
		}

		switch {
		case captured != nil:
			err = s.applyCapture(ctx, row.ProviderOrderID, captured.ID, captured.AmountPaise)
		case failed != nil:
			err = s.applyFailure(ctx, row.ProviderOrderID, failed.ID, failed.ErrorDescription)
		default:
			continue
		}
		if err != nil {
			logCtx := s.logg.WithField(ctx, "payment_id", row.ID.String())
			s.logg.Error(logCtx, "poll reconcile failed", err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func (s *service) applyCapture(ctx context.Context, providerOrderID, providerPaymentID string, amountPaise int64) error {
	payment, err := s.findByProviderOrder(ctx, providerOrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		logCtx := s.logg.WithField(ctx, "provider_order_id", providerOrderID)
		s.logg.Warn(logCtx, "ignoring capture for unknown provider order")
		s.metrics.IncWebhookEvent(webhookOutcomeIgnored)
		return nil
	}
	if payment.Status == enums.PaymentStatusSuccess {
		s.metrics.IncWebhookEvent(webhookOutcomeDuplicate)
		return nil
	}
	if !payment.Status.CanTransitionTo(enums.PaymentStatusSuccess) {
		s.metrics.IncWebhookEvent(webhookOutcomeRejected)
		return pkgerrors.New(pkgerrors.CodePaymentImmutable, "payment is no longer mutable").
			WithDetails(map[string]any{"status": payment.Status.String()})
	}

	if razorpay.ToPaise(payment.Amount) != amountPaise {
		if err := s.markFailed(ctx, payment, providerPaymentID, "amount mismatch"); err != nil {
			return err
		}
		s.metrics.IncWebhookEvent(webhookOutcomeRejected)
		return pkgerrors.New(pkgerrors.CodeAmountMismatch, "captured amount does not match order total").
			WithDetails(map[string]any{
				"expected_paise": razorpay.ToPaise(payment.Amount),
				"received_paise": amountPaise,
			})
	}

	capturedAfterCancel := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateStatusIf(ctx, payment.ID, enums.PaymentStatusCreated, map[string]any{
			"status":              enums.PaymentStatusSuccess,
			"provider_payment_id": providerPaymentID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment success")
		}
		if !ok {
			// A concurrent writer already settled the row.
			return nil
		}

		moved, err := repo.UpdateOrderStatusIf(ctx, payment.OrderID, enums.OrderStatusPaymentPending, enums.OrderStatusPaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !moved {
			// A capture webhook can land before the intent response commits.
			moved, err = repo.UpdateOrderStatusIf(ctx, payment.OrderID, enums.OrderStatusCreated, enums.OrderStatusPaid)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
		}
		if !moved {
			// The order left the payable states while the capture was in
			// flight, which means a cancellation won the race. The money
			// still moved at the provider, so the payment is recorded as
			// captured and refunded after commit.
			order, err := repo.FindOrderByID(ctx, payment.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for capture")
			}
			if order.Status == enums.OrderStatusCancelled {
				capturedAfterCancel = true
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: PaymentSucceededEvent{
				PaymentID:         payment.ID,
				OrderID:           payment.OrderID,
				ProviderPaymentID: providerPaymentID,
				Amount:            payment.Amount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return err
	}

	if capturedAfterCancel {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"order_id":   payment.OrderID.String(),
		})
		s.logg.Warn(logCtx, "capture landed on cancelled order, refunding")
		if err := s.RefundForCancelledOrder(ctx, payment.OrderID); err != nil {
			s.logg.Error(logCtx, "refund of capture on cancelled order failed", err)
		}
	}

	s.metrics.IncWebhookEvent(webhookOutcomeProcessed)
	return nil
}

func (s *service) applyFailure(ctx context.Context, providerOrderID, providerPaymentID, reason string) error {
	payment, err := s.findByProviderOrder(ctx, providerOrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		logCtx := s.logg.WithField(ctx, "provider_order_id", providerOrderID)
		s.logg.Warn(logCtx, "ignoring failure for unknown provider order")
		s.metrics.IncWebhookEvent(webhookOutcomeIgnored)
		return nil
	}
	if payment.Status == enums.PaymentStatusFailed {
		s.metrics.IncWebhookEvent(webhookOutcomeDuplicate)
		return nil
	}
	if !payment.Status.CanTransitionTo(enums.PaymentStatusFailed) {
		// Out of order delivery after a capture. The settled state wins.
		logCtx := s.logg.WithField(ctx, "payment_id", payment.ID.String())
		s.logg.Warn(logCtx, "ignoring failure webhook for settled payment")
		s.metrics.IncWebhookEvent(webhookOutcomeIgnored)
		return nil
	}

	if err := s.markFailed(ctx, payment, providerPaymentID, reason); err != nil {
		return err
	}
	s.metrics.IncWebhookEvent(webhookOutcomeProcessed)
	return nil
}

func (s *service) markFailed(ctx context.Context, payment *models.Payment, providerPaymentID, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"status": enums.PaymentStatusFailed,
		}
		if providerPaymentID != "" {
			updates["provider_payment_id"] = providerPaymentID
		}
		if reason != "" {
			updates["failure_reason"] = reason
		}
		ok, err := repo.UpdateStatusIf(ctx, payment.ID, enums.PaymentStatusCreated, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		if !ok {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: PaymentFailedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Reason:    reason,
			},
		})
	})
}

// findByProviderOrder returns (nil, nil) when no local payment matches. The
// provider acks on success only, so an unknown event must not surface as an
// error or it will be redelivered forever.
func (s *service) findByProviderOrder(ctx context.Context, providerOrderID string) (*models.Payment, error) {
	if providerOrderID == "" {
		return nil, nil
	}
	payment, err := s.repo.FindByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}
