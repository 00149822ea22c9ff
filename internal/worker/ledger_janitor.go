package worker

import (
	"context"
	"time"

	"ticket-fulfillment/internal/service"
	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

const DefaultJanitorInterval = 10 * time.Minute

// LedgerJanitor 定期清掉過期的 idempotency key
type LedgerJanitor struct {
	orders service.OrderService
	task   *periodicTask
}

func NewLedgerJanitor(orders service.OrderService, interval time.Duration) *LedgerJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	j := &LedgerJanitor{orders: orders}
	j.task = newPeriodicTask("ledger_janitor", interval, j.purge)
	return j
}

func (j *LedgerJanitor) Start(ctx context.Context) error {
	return j.task.Start(ctx)
}

func (j *LedgerJanitor) Stop() {
	j.task.Stop()
}

func (j *LedgerJanitor) purge(ctx context.Context) {
	purged, err := j.orders.PurgeIdempotencyKeys(ctx, time.Now().UTC())
	if err != nil {
		logger.WithComponent("janitor").Error("failed to purge idempotency keys", zap.Error(err))
		return
	}
	if purged > 0 {
		logger.WithComponent("janitor").Info("idempotency keys purged", zap.Int64("count", purged))
	}
}
