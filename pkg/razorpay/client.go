package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/config"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

var (
	errKeyIDRequired         = errors.New("razorpay key id is required")
	errKeySecretRequired     = errors.New("razorpay key secret is required")
	errWebhookSecretRequired = errors.New("razorpay webhook secret is required")
	errLoggerRequired        = errors.New("razorpay logger is required")
)

// OrderCreator creates provider orders ahead of checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, params OrderCreateParams) (*Order, error)
}

// PaymentFetcher reads provider payment state, used by reconciliation.
type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	FetchPaymentsForOrder(ctx context.Context, providerOrderID string) ([]Payment, error)
}

// Refunder issues refunds against captured payments.
type Refunder interface {
	RefundPayment(ctx context.Context, paymentID string, amountPaise int64, notes map[string]interface{}) (*Refund, error)
}

// Client exposes Razorpay primitives with centralized auth, logging, and error mapping.
type Client struct {
	sdk           *rzpsdk.Client
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	logger        *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "INR"
	}

	c := &Client{
		sdk:           rzpsdk.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		currency:      currency,
		logger:        logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the configured public key id.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Currency returns the settlement currency sent to the provider.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// CreateOrder registers an order with the provider before checkout opens.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*Order, error) {
	if params.Currency == "" {
		params.Currency = c.currency
	}
	c.log(ctx, "request", "create_order", map[string]any{
		"amount_paise": params.AmountPaise,
		"currency":     params.Currency,
		"receipt":      params.Receipt,
	})

	resp, err := c.sdk.Order.Create(params.toRequest(), nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "create order")
	}

	order := orderFromResponse(resp)
	c.log(ctx, "response", "create_order", map[string]any{
		"provider_order_id": order.ID,
		"status":            order.Status,
	})
	return order, nil
}

// FetchPayment reads the current provider-side state of a payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "fetch_payment", map[string]any{"provider_payment_id": paymentID})

	resp, err := c.sdk.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		c.log(ctx, "error", "fetch_payment", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "fetch payment")
	}

	payment := paymentFromResponse(resp)
	c.log(ctx, "response", "fetch_payment", map[string]any{
		"provider_payment_id": payment.ID,
		"status":              payment.Status,
	})
	return payment, nil
}

// FetchPaymentsForOrder lists the payment attempts recorded against a
// provider order. Reconciliation polls through it when no webhook arrived,
// since a stale local payment carries no provider payment id yet.
func (c *Client) FetchPaymentsForOrder(ctx context.Context, providerOrderID string) ([]Payment, error) {
	if strings.TrimSpace(providerOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id is required")
	}
	c.log(ctx, "request", "fetch_order_payments", map[string]any{"provider_order_id": providerOrderID})

	resp, err := c.sdk.Order.Payments(providerOrderID, nil, nil)
	if err != nil {
		c.log(ctx, "error", "fetch_order_payments", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "fetch order payments")
	}

	payments := paymentsFromCollection(resp)
	c.log(ctx, "response", "fetch_order_payments", map[string]any{
		"provider_order_id": providerOrderID,
		"count":             len(payments),
	})
	return payments, nil
}

// RefundPayment issues a refund for the captured payment. A zero amountPaise
// refunds the full captured amount.
func (c *Client) RefundPayment(ctx context.Context, paymentID string, amountPaise int64, notes map[string]interface{}) (*Refund, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	data := map[string]interface{}{}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	c.log(ctx, "request", "refund_payment", map[string]any{
		"provider_payment_id": paymentID,
		"amount_paise":        amountPaise,
	})

	resp, err := c.sdk.Payment.Refund(paymentID, int(amountPaise), data, nil)
	if err != nil {
		c.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "refund payment")
	}

	refund := refundFromResponse(resp)
	c.log(ctx, "response", "refund_payment", map[string]any{
		"refund_id": refund.ID,
		"status":    refund.Status,
	})
	return refund, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw request body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(body, signature, c.webhookSecret)
}

// VerifyCheckout checks the signature returned by the hosted checkout flow.
func (c *Client) VerifyCheckout(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifyCheckoutSignature(orderID, paymentID, signature, c.keySecret)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "cvv", "secret", "email", "contact", "vpa"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapProviderError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	code := pkgerrors.CodeDependency
	switch {
	case strings.Contains(msg, "BAD_REQUEST_ERROR"):
		code = pkgerrors.CodeValidation
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"):
		code = pkgerrors.CodeNotFound
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "key_id"):
		code = pkgerrors.CodeUnauthorized
	}
	return pkgerrors.Wrap(code, err, fmt.Sprintf("razorpay %s failed", op))
}
