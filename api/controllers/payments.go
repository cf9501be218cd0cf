package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/api/middleware"
	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	"github.com/farmbasket-dev/farmbasket-backend/api/validators"
	"github.com/farmbasket-dev/farmbasket-backend/internal/payments"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

// PaymentsController exposes the payment intent and verification endpoints.
type PaymentsController struct {
	Payments payments.Service
	Logg     *logger.Logger
}

type createIntentRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

type verifyCheckoutRequest struct {
	OrderID           string `json:"orderId" validate:"required,uuid"`
	ProviderOrderID   string `json:"providerOrderId" validate:"required"`
	ProviderPaymentID string `json:"providerPaymentId" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

type paymentView struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"orderId"`
	Status            string     `json:"status"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	ProviderOrderID   string     `json:"providerOrderId"`
	ProviderPaymentID *string    `json:"providerPaymentId,omitempty"`
	RefundID          *string    `json:"refundId,omitempty"`
	RefundedAt        *time.Time `json:"refundedAt,omitempty"`
	FailureReason     *string    `json:"failureReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func buildPaymentView(payment *models.Payment) paymentView {
	return paymentView{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		Status:            payment.Status.String(),
		Amount:            payment.Amount.StringFixed(2),
		Currency:          payment.Currency.String(),
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: payment.ProviderPaymentID,
		RefundID:          payment.RefundID,
		RefundedAt:        payment.RefundedAt,
		FailureReason:     payment.FailureReason,
		CreatedAt:         payment.CreatedAt,
	}
}

func (c *PaymentsController) actor(r *http.Request) (payments.Actor, bool) {
	userID, okID := middleware.UserIDFromContext(r.Context())
	role, okRole := middleware.RoleFromContext(r.Context())
	if !okID || !okRole {
		return payments.Actor{}, false
	}
	return payments.Actor{UserID: userID, Role: role}, true
}

func (c *PaymentsController) CreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req createIntentRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
		return
	}

	result, err := c.Payments.CreateIntent(r.Context(), actor, orderID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyPaid {
		status = http.StatusOK
	}
	responses.WriteSuccessStatus(w, status, result)
}

func (c *PaymentsController) GetForOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	payment, err := c.Payments.GetForOrder(r.Context(), actor, orderID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, buildPaymentView(payment))
}

// Verify handles the hosted checkout return leg. The webhook remains the
// source of truth; this endpoint just converges state sooner.
func (c *PaymentsController) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req verifyCheckoutRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
		return
	}

	if err := c.Payments.VerifyCheckout(r.Context(), payments.VerifyCheckoutInput{
		Actor:             actor,
		OrderID:           orderID,
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	}); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "verified"})
}
