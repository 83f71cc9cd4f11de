package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aguasol/aguasol-backend/pkg/logger"
)

const defaultRenewalBatch = 250

type subscriptionRenewer interface {
	RenewDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// SubscriptionRenewalJobParams configure the subscription renewal job.
type SubscriptionRenewalJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionRenewer
	Limit         int
	Now           func() time.Time
}

// NewSubscriptionRenewalJob builds the job that rolls active plans into their
// next period.
func NewSubscriptionRenewalJob(params SubscriptionRenewalJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultRenewalBatch
	}
	return &subscriptionRenewalJob{
		logg:          params.Logger,
		subscriptions: params.Subscriptions,
		limit:         limit,
		now:           now,
	}, nil
}

type subscriptionRenewalJob struct {
	logg          *logger.Logger
	subscriptions subscriptionRenewer
	limit         int
	now           func() time.Time
}

func (j *subscriptionRenewalJob) Name() string { return "subscription-renewal" }

func (j *subscriptionRenewalJob) Run(ctx context.Context) error {
	renewed, err := j.subscriptions.RenewDue(ctx, j.now().UTC(), j.limit)
	logCtx := j.logg.WithField(ctx, "renewed", renewed)
	if err != nil {
		// partial progress is kept; failed plans are retried next cycle
		j.logg.Warn(logCtx, "subscription renewal finished with errors")
		return fmt.Errorf("renew subscriptions: %w", err)
	}
	j.logg.Info(logCtx, "subscription renewal complete")
	return nil
}
