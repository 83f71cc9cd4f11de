package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aguasol/aguasol-backend/pkg/logger"
)

const defaultExpiryBatch = 200

type guestOrderExpirer interface {
	ExpireGuestOrders(ctx context.Context, now time.Time, limit int) (int, error)
}

// OrderExpiryJobParams configure the guest order expiry job.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders guestOrderExpirer
	Limit  int
}

// NewOrderExpiryJob builds the job that expires unconfirmed guest orders.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		limit:  limit,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders guestOrderExpirer
	limit  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireGuestOrders(ctx, j.now().UTC(), j.limit)
	logCtx := j.logg.WithField(ctx, "expired", expired)
	if err != nil {
		return fmt.Errorf("expire guest orders: %w", err)
	}
	j.logg.Info(logCtx, "guest order expiry complete")
	return nil
}
