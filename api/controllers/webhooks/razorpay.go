package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	"github.com/farmbasket-dev/farmbasket-backend/internal/payments"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/redis"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"

	maxWebhookBodyBytes = 1 << 20

	// Seen event ids are remembered long enough to absorb provider retries.
	eventDedupeTTL = 48 * time.Hour
)

type webhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// RazorpayController receives provider webhooks, verifies authenticity and
// hands verified events to payment reconciliation.
type RazorpayController struct {
	Payments payments.Service
	Verifier webhookVerifier
	Dedupe   redis.IdempotencyStore
	Logg     *logger.Logger
}

// webhookEnvelope mirrors the provider's webhook shape, reduced to the fields
// reconciliation consumes.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (c *RazorpayController) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
		return
	}

	// Signature check comes before any parsing or side effect. An unsigned or
	// tampered payload must leave no trace.
	signature := r.Header.Get(signatureHeader)
	if !c.Verifier.VerifyWebhookSignature(body, signature) {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature verification failed"))
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
		return
	}

	eventID := r.Header.Get(eventIDHeader)
	if eventID != "" && c.Dedupe != nil {
		key := c.Dedupe.IdempotencyKey("webhook:razorpay", eventID)
		fresh, err := c.Dedupe.SetNX(r.Context(), key, "1", eventDedupeTTL)
		if err != nil {
			// Dedupe outage falls through to reconciliation, which is
			// idempotent on payment state.
			c.Logg.Warn(c.Logg.WithField(r.Context(), "event_id", eventID), "webhook dedupe store unavailable")
		} else if !fresh {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}
	}

	event := payments.WebhookEvent{
		Event:             envelope.Event,
		ProviderOrderID:   envelope.Payload.Payment.Entity.OrderID,
		ProviderPaymentID: envelope.Payload.Payment.Entity.ID,
		AmountPaise:       envelope.Payload.Payment.Entity.Amount,
		ErrorDescription:  envelope.Payload.Payment.Entity.ErrorDescription,
	}

	if err := c.Payments.HandleWebhookEvent(r.Context(), event); err != nil {
		// Release the dedupe slot so the provider retry is not swallowed.
		if eventID != "" && c.Dedupe != nil {
			key := c.Dedupe.IdempotencyKey("webhook:razorpay", eventID)
			if delErr := c.Dedupe.Del(r.Context(), key); delErr != nil {
				c.Logg.Warn(c.Logg.WithField(r.Context(), "event_id", eventID), "failed to release webhook dedupe key")
			}
		}
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]string{"status": "accepted"})
}
