package worker

import (
	"context"
	"time"

	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/service"
	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

const DefaultSweepInterval = time.Minute

type HoldSweeper interface {
	Start(ctx context.Context) error
	Stop()
	// SweepOnce 回收所有過期的 hold，回傳釋放的數量
	SweepOnce(ctx context.Context) (int, error)
}

type HoldSweeperImpl struct {
	inventory service.InventoryService
	notifier  client.ExpiryNotifier
	metrics   *metrics.InventoryMetrics
	task      *periodicTask
}

// NewHoldSweeper notifier 為 nil 時只回收，不通知訂單服務
func NewHoldSweeper(inventory service.InventoryService, notifier client.ExpiryNotifier, metrics *metrics.InventoryMetrics, interval time.Duration) HoldSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &HoldSweeperImpl{
		inventory: inventory,
		notifier:  notifier,
		metrics:   metrics,
	}
	s.task = newPeriodicTask("hold_sweeper", interval, func(ctx context.Context) {
		_, _ = s.SweepOnce(ctx)
	})
	return s
}

func (s *HoldSweeperImpl) Start(ctx context.Context) error {
	return s.task.Start(ctx)
}

func (s *HoldSweeperImpl) Stop() {
	s.task.Stop()
}

func (s *HoldSweeperImpl) SweepOnce(ctx context.Context) (int, error) {
	log := logger.WithComponent("sweeper").With(zap.String("operation", "sweep"))

	// 失敗時只有出錯那一批回滾，先前已提交的批次仍要計數與通知
	expired, err := s.inventory.ExpireHolds(ctx, time.Now().UTC())
	if len(expired) > 0 {
		s.metrics.HoldsExpiredTotal.Add(float64(len(expired)))
		log.Info("expired holds released", zap.Int("count", len(expired)))
		s.notify(ctx, log, expired)
	}
	if err != nil {
		s.metrics.SweeperFailuresTotal.Inc()
		log.Error("hold sweep failed", zap.Error(err))
		return len(expired), err
	}
	return len(expired), nil
}

// notify 依訂單分組通知；失敗只記錄，不影響已提交的回收
func (s *HoldSweeperImpl) notify(ctx context.Context, log *zap.Logger, expired []model.ExpiredHold) {
	if s.notifier == nil {
		return
	}

	for _, callback := range groupByOrder(expired) {
		if err := s.notifier.NotifyExpired(ctx, callback); err != nil {
			s.metrics.ExpiryNotifyFailuresTotal.Inc()
			log.Warn("expiry notification failed",
				zap.String("order_id", callback.OrderID),
				zap.Strings("seats", callback.Seats),
				zap.Error(err),
			)
		}
	}
}

func groupByOrder(expired []model.ExpiredHold) []model.ReservationCallback {
	index := make(map[string]int)
	callbacks := make([]model.ReservationCallback, 0)
	for _, hold := range expired {
		if hold.OrderID == "" {
			continue
		}
		i, ok := index[hold.OrderID]
		if !ok {
			i = len(callbacks)
			index[hold.OrderID] = i
			callbacks = append(callbacks, model.ReservationCallback{
				OrderID: hold.OrderID,
				EventID: hold.EventID,
				Action:  model.ReservationActionExpired,
			})
		}
		callbacks[i].Seats = append(callbacks[i].Seats, hold.SeatID)
	}
	return callbacks
}
