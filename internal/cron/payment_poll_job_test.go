package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

type stubPoller struct {
	reconciled int
	err        error
	gotMinAge  time.Duration
	gotLimit   int
}

func (s *stubPoller) PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	s.gotMinAge = minAge
	s.gotLimit = limit
	return s.reconciled, s.err
}

func TestPaymentPollJobPassesConfiguredWindow(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	poller := &stubPoller{reconciled: 3}
	job, err := NewPaymentPollJob(PaymentPollJobParams{
		Logger:   logg,
		Payments: poller,
		MinAge:   10 * time.Minute,
		Batch:    25,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "payment-poll" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if poller.gotMinAge != 10*time.Minute || poller.gotLimit != 25 {
		t.Fatalf("expected configured window, got %v/%d", poller.gotMinAge, poller.gotLimit)
	}
}

func TestPaymentPollJobPropagatesErrors(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	poller := &stubPoller{err: errors.New("provider down")}
	job, err := NewPaymentPollJob(PaymentPollJobParams{Logger: logg, Payments: poller})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing poll")
	}
}
