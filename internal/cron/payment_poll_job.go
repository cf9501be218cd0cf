package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

const (
	defaultPollMinAge = 5 * time.Minute
	defaultPollBatch  = 100
)

// pendingPoller reconciles stale payment intents against the provider.
type pendingPoller interface {
	PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

// PaymentPollJobParams configure the payment reconciliation job.
type PaymentPollJobParams struct {
	Logger   *logger.Logger
	Payments pendingPoller
	MinAge   time.Duration
	Batch    int
}

// NewPaymentPollJob builds the job that sweeps payments whose webhook never
// arrived and settles them from the provider's view.
func NewPaymentPollJob(params PaymentPollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = defaultPollMinAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultPollBatch
	}
	return &paymentPollJob{
		logg:     params.Logger,
		payments: params.Payments,
		minAge:   minAge,
		batch:    batch,
	}, nil
}

type paymentPollJob struct {
	logg     *logger.Logger
	payments pendingPoller
	minAge   time.Duration
	batch    int
}

func (j *paymentPollJob) Name() string { return "payment-poll" }

func (j *paymentPollJob) Run(ctx context.Context) error {
	reconciled, err := j.payments.PollPending(ctx, j.minAge, j.batch)
	if err != nil {
		return fmt.Errorf("payment poll: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"reconciled": reconciled,
		"min_age":    j.minAge.String(),
	})
	j.logg.Info(logCtx, "payment poll sweep complete")
	return nil
}
