package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/mocks"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHoldSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - notifies once per order", func(t *testing.T) {
		inventory := mocks.NewInventoryServiceMock()
		notifier := mocks.NewExpiryNotifierMock()
		m := metrics.NewInventoryMetrics(prometheus.NewRegistry())
		sweeper := worker.NewHoldSweeper(inventory, notifier, m, time.Minute)

		inventory.On("ExpireHolds", mock.Anything, mock.AnythingOfType("time.Time")).Return([]model.ExpiredHold{
			{HoldID: "h1", OrderID: "order-1", EventID: "E1", SeatID: "A1", SeatReleased: true},
			{HoldID: "h2", OrderID: "order-2", EventID: "E1", SeatID: "B1", SeatReleased: true},
			{HoldID: "h3", OrderID: "order-1", EventID: "E1", SeatID: "A2", SeatReleased: true},
		}, nil).Once()
		notifier.On("NotifyExpired", mock.Anything, model.ReservationCallback{
			OrderID: "order-1", EventID: "E1", Seats: []string{"A1", "A2"}, Action: model.ReservationActionExpired,
		}).Return(nil).Once()
		notifier.On("NotifyExpired", mock.Anything, model.ReservationCallback{
			OrderID: "order-2", EventID: "E1", Seats: []string{"B1"}, Action: model.ReservationActionExpired,
		}).Return(errors.New("order service down")).Once()

		n, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 3.0, testutil.ToFloat64(m.HoldsExpiredTotal))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpiryNotifyFailuresTotal))
		inventory.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("Success - nothing expired", func(t *testing.T) {
		inventory := mocks.NewInventoryServiceMock()
		m := metrics.NewInventoryMetrics(prometheus.NewRegistry())
		sweeper := worker.NewHoldSweeper(inventory, nil, m, time.Minute)

		inventory.On("ExpireHolds", mock.Anything, mock.Anything).Return([]model.ExpiredHold{}, nil).Once()

		n, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, 0.0, testutil.ToFloat64(m.HoldsExpiredTotal))
	})

	t.Run("Failed - rollback is counted", func(t *testing.T) {
		inventory := mocks.NewInventoryServiceMock()
		notifier := mocks.NewExpiryNotifierMock()
		m := metrics.NewInventoryMetrics(prometheus.NewRegistry())
		sweeper := worker.NewHoldSweeper(inventory, notifier, m, time.Minute)

		dbErr := errors.New("deadlock detected")
		inventory.On("ExpireHolds", mock.Anything, mock.Anything).Return(nil, dbErr).Once()

		_, err := sweeper.SweepOnce(ctx)
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SweeperFailuresTotal))
		notifier.AssertNotCalled(t, "NotifyExpired", mock.Anything, mock.Anything)
	})

	t.Run("Failed - committed batches still notified", func(t *testing.T) {
		inventory := mocks.NewInventoryServiceMock()
		notifier := mocks.NewExpiryNotifierMock()
		m := metrics.NewInventoryMetrics(prometheus.NewRegistry())
		sweeper := worker.NewHoldSweeper(inventory, notifier, m, time.Minute)

		dbErr := errors.New("deadlock detected")
		inventory.On("ExpireHolds", mock.Anything, mock.Anything).Return([]model.ExpiredHold{
			{HoldID: "h1", OrderID: "order-1", EventID: "E1", SeatID: "A1", SeatReleased: true},
		}, dbErr).Once()
		notifier.On("NotifyExpired", mock.Anything, model.ReservationCallback{
			OrderID: "order-1", EventID: "E1", Seats: []string{"A1"}, Action: model.ReservationActionExpired,
		}).Return(nil).Once()

		n, err := sweeper.SweepOnce(ctx)
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.HoldsExpiredTotal))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SweeperFailuresTotal))
		notifier.AssertExpectations(t)
	})
}

func TestHoldSweeper_StartStop(t *testing.T) {
	inventory := mocks.NewInventoryServiceMock()
	m := metrics.NewInventoryMetrics(prometheus.NewRegistry())
	sweeper := worker.NewHoldSweeper(inventory, nil, m, 10*time.Millisecond)

	var runs atomic.Int32
	inventory.On("ExpireHolds", mock.Anything, mock.Anything).Return([]model.ExpiredHold{}, nil).
		Run(func(mock.Arguments) { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sweeper.Start(ctx))
	assert.ErrorIs(t, sweeper.Start(ctx), worker.ErrAlreadyRunning)

	// 啟動時立即跑一次，之後依 interval 持續執行
	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}
