package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
)

const (
	subscriptionExpiryJobName = "subscription-expiry"
	defaultExpiryBatchLimit   = 250
	maxExpiryBatches          = 40
)

type subscriptionExpirer interface {
	ExpireElapsed(ctx context.Context, limit int) (int64, error)
}

// SubscriptionExpiryJobParams configures the expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
	BatchLimit    int
}

type subscriptionExpiryJob struct {
	logg       *logger.Logger
	subs       subscriptionExpirer
	batchLimit int
}

// NewSubscriptionExpiryJob constructs the job that flips elapsed
// subscription windows to Expired.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultExpiryBatchLimit
	}
	return &subscriptionExpiryJob{
		logg:       params.Logger,
		subs:       params.Subscriptions,
		batchLimit: limit,
	}, nil
}

func (j *subscriptionExpiryJob) Name() string {
	return subscriptionExpiryJobName
}

// Run sweeps in batches until a batch comes back short, so a single cycle
// drains the backlog without holding one long transaction. The batch cap
// bounds a pathological backlog to the next cycle.
func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	var errs error
	var total int64
	for batch := 0; batch < maxExpiryBatches; batch++ {
		flipped, err := j.subs.ExpireElapsed(ctx, j.batchLimit)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expiry batch %d: %w", batch, err))
			break
		}
		total += flipped
		if flipped < int64(j.batchLimit) {
			break
		}
	}
	if total > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", total), "subscriptions expired")
	}
	return errs
}
