package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

const (
	defaultUnpaidTTL   = 48 * time.Hour
	unpaidBatchSize    = 200
	unpaidCancelReason = "payment not received in time"
)

type unpaidOrders interface {
	StaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	Lookup(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason string) (*orders.OrderDTO, error)
}

type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders unpaidOrders
	TTL    time.Duration
}

// NewOrderTTLJob cancels pending orders whose online payment never arrived.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidTTL
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  unpaidBatchSize,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders unpaidOrders
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "unpaid-order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.orders.StaleUnpaid(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale unpaid orders: %w", err)
	}
	var errs error
	cancelled, skipped := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		current, err := j.orders.Lookup(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reload order %s: %w", id, err))
			continue
		}
		if !stillUnpaid(current) {
			skipped++
			continue
		}
		_, err = j.orders.Cancel(ctx, types.SystemActor(), id, unpaidCancelReason)
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			// Paid or moved on between the query and the cancel.
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", id, err))
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(ids),
		"cancelled":  cancelled,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "unpaid order sweep complete")
	return errs
}

func stillUnpaid(order *models.Order) bool {
	return order.Status == enums.OrderStatusPending && order.PaymentStatus.Unsettled() && order.PaymentMethod.PrepaidOnly()
}
