package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/farmbasket-dev/farmbasket-backend/internal/payments"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/razorpay"
)

const testWebhookSecret = "whsec_test"

type stubPayments struct {
	events []payments.WebhookEvent
	err    error
}

func (s *stubPayments) CreateIntent(ctx context.Context, actor payments.Actor, orderID uuid.UUID) (*payments.IntentResult, error) {
	return nil, nil
}

func (s *stubPayments) GetForOrder(ctx context.Context, actor payments.Actor, orderID uuid.UUID) (*models.Payment, error) {
	return nil, nil
}

func (s *stubPayments) VerifyCheckout(ctx context.Context, input payments.VerifyCheckoutInput) error {
	return nil
}

func (s *stubPayments) HandleWebhookEvent(ctx context.Context, event payments.WebhookEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *stubPayments) PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	return 0, nil
}

func (s *stubPayments) RefundForCancelledOrder(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

type secretVerifier struct{}

func (secretVerifier) VerifyWebhookSignature(body []byte, signature string) bool {
	return razorpay.VerifySignature(body, signature, testWebhookSecret)
}

type memoryDedupe struct {
	mu   sync.Mutex
	seen map[string]string
}

func newMemoryDedupe() *memoryDedupe {
	return &memoryDedupe{seen: make(map[string]string)}
}

func (m *memoryDedupe) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.seen[key]
	if !ok {
		return "", fmt.Errorf("key not found")
	}
	return value, nil
}

func (m *memoryDedupe) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryDedupe) IdempotencyKey(scope, id string) string {
	return "fb:idem:" + scope + ":" + id
}

func (m *memoryDedupe) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.seen, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "webhooks-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func capturedBody(providerOrderID, providerPaymentID string, amountPaise int64) []byte {
	payload := map[string]any{
		"event": payments.WebhookPaymentCaptured,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       providerPaymentID,
					"order_id": providerOrderID,
					"amount":   amountPaise,
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func postWebhook(t *testing.T, controller *RazorpayController, body []byte, sign bool, eventID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", strings.NewReader(string(body)))
	if sign {
		req.Header.Set("X-Razorpay-Signature", razorpay.ComputeSignature(body, testWebhookSecret))
	}
	if eventID != "" {
		req.Header.Set("X-Razorpay-Event-Id", eventID)
	}
	rec := httptest.NewRecorder()
	controller.Handle(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubPayments{}
	controller := &RazorpayController{
		Payments: svc,
		Verifier: secretVerifier{},
		Dedupe:   newMemoryDedupe(),
		Logg:     testLogger(),
	}

	rec := postWebhook(t, controller, capturedBody("order_x", "pay_x", 12000), false, "evt_1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("unsigned webhook must not reach reconciliation")
	}
}

func TestWebhookDispatchesVerifiedEvent(t *testing.T) {
	svc := &stubPayments{}
	controller := &RazorpayController{
		Payments: svc,
		Verifier: secretVerifier{},
		Dedupe:   newMemoryDedupe(),
		Logg:     testLogger(),
	}

	rec := postWebhook(t, controller, capturedBody("order_x", "pay_x", 12000), true, "evt_1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 {
		t.Fatalf("expected one dispatched event, got %d", len(svc.events))
	}
	event := svc.events[0]
	if event.ProviderOrderID != "order_x" || event.ProviderPaymentID != "pay_x" || event.AmountPaise != 12000 {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestWebhookDeduplicatesByEventID(t *testing.T) {
	svc := &stubPayments{}
	controller := &RazorpayController{
		Payments: svc,
		Verifier: secretVerifier{},
		Dedupe:   newMemoryDedupe(),
		Logg:     testLogger(),
	}

	body := capturedBody("order_x", "pay_x", 12000)
	first := postWebhook(t, controller, body, true, "evt_1")
	second := postWebhook(t, controller, body, true, "evt_1")

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("both deliveries must return 200, got %d and %d", first.Code, second.Code)
	}
	if len(svc.events) != 1 {
		t.Fatalf("replayed event must be dispatched once, got %d", len(svc.events))
	}
	if !strings.Contains(second.Body.String(), "duplicate") {
		t.Fatalf("replay response should mark the duplicate: %s", second.Body.String())
	}
}

func TestWebhookReleasesDedupeOnProcessingError(t *testing.T) {
	svc := &stubPayments{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	controller := &RazorpayController{
		Payments: svc,
		Verifier: secretVerifier{},
		Dedupe:   newMemoryDedupe(),
		Logg:     testLogger(),
	}

	body := capturedBody("order_x", "pay_x", 12000)
	first := postWebhook(t, controller, body, true, "evt_1")
	if first.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on processing failure, got %d", first.Code)
	}

	svc.err = nil
	second := postWebhook(t, controller, body, true, "evt_1")
	if second.Code != http.StatusOK {
		t.Fatalf("retry after failure must succeed, got %d", second.Code)
	}
	if len(svc.events) != 2 {
		t.Fatalf("retry must reach reconciliation again, got %d dispatches", len(svc.events))
	}
}
