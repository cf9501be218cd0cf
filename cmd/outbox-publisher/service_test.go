package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/config"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

type fakeDB struct{}

func (fakeDB) Ping(ctx context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSub struct{}

func (fakePubSub) Ping(ctx context.Context) error { return nil }

func (fakePubSub) Publisher(name string) *gcppubsub.Publisher { return nil }

func (fakePubSub) TopicFor(aggregateType string) string {
	if aggregateType == "payment" {
		return "payments-events"
	}
	return "orders-events"
}

type fakeRepo struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	events := r.pending
	r.pending = nil
	return events, nil
}

func (r *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type fakePublisher struct {
	topics []string
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return fakeResult{err: p.err}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 100,
			MaxAttempts:    3,
		},
	}
}

func pendingEvent(eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Config:     testConfig(),
		Logger:     testLogger(),
		DB:         fakeDB{},
		PubSub:     fakePubSub{},
		Repository: repo,
		PublisherFactory: func(topic string) publisher {
			pub.topics = append(pub.topics, topic)
			return pub
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{pending: []models.OutboxEvent{
		pendingEvent(enums.EventOrderCreated, enums.AggregateOrder, 0),
		pendingEvent(enums.EventPaymentSucceeded, enums.AggregatePayment, 0),
	}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report progress")
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected 2 events marked published, got %d", len(repo.published))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no failures, got %d", len(repo.failed))
	}
	if pub.topics[0] != "orders-events" || pub.topics[1] != "payments-events" {
		t.Fatalf("events routed to wrong topics: %v", pub.topics)
	}
}

func TestProcessBatchRecordsFailures(t *testing.T) {
	repo := &fakeRepo{pending: []models.OutboxEvent{
		pendingEvent(enums.EventOrderCreated, enums.AggregateOrder, 1),
	}}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report progress")
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected 1 failure mark, got %d", len(repo.failed))
	}
	if len(repo.published) != 0 {
		t.Fatal("failed event must not be marked published")
	}
}

func TestProcessBatchIdleWhenEmpty(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("empty batch must report no progress")
	}
}
