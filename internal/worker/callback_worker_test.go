package worker_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/mocks"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/queue"
	"ticket-fulfillment/internal/worker"
	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCallbackWorker(t *testing.T) {
	paid := model.PaymentCallback{OrderID: "order-1", Status: model.PaymentCallbackPaid, PaymentID: "pay-1"}
	expired := model.ReservationCallback{OrderID: "order-2", EventID: "E1", Seats: []string{"A1"}, Action: model.ReservationActionExpired}

	t.Run("Success - dispatches by kind", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		orders := mocks.NewOrderServiceMock()
		m := metrics.NewOrderMetrics(prometheus.NewRegistry())
		q := queue.NewMemoryCallbackQueue(10, 3)
		var handled atomic.Int32
		count := func(mock.Arguments) { handled.Add(1) }
		orders.On("HandlePaymentCallback", mock.Anything, paid).Return(nil).Once().Run(count)
		orders.On("HandleReservationCallback", mock.Anything, expired).Return(nil).Once().Run(count)

		w := worker.NewCallbackWorker(orders, q, m)
		require.NoError(t, w.Start(ctx))

		require.NoError(t, q.Publish(ctx, &model.CallbackMessage{Kind: model.CallbackKindPayment, Payment: &paid}))
		require.NoError(t, q.Publish(ctx, &model.CallbackMessage{Kind: model.CallbackKindReservation, Reservation: &expired}))

		assert.Eventually(t, func() bool {
			return handled.Load() == 2
		}, time.Second, 5*time.Millisecond)
		orders.AssertExpectations(t)
		assert.Equal(t, 0.0, testutil.ToFloat64(m.WebhookFailuresTotal.WithLabelValues("payment")))

		cancel()
		w.Wait()
	})

	t.Run("Success - failed callback is retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		orders := mocks.NewOrderServiceMock()
		m := metrics.NewOrderMetrics(prometheus.NewRegistry())
		q := queue.NewMemoryCallbackQueue(10, 5)
		var handled atomic.Int32
		count := func(mock.Arguments) { handled.Add(1) }
		orders.On("HandlePaymentCallback", mock.Anything, paid).Return(apperrors.ErrRequestInProgress).Once().Run(count)
		orders.On("HandlePaymentCallback", mock.Anything, paid).Return(nil).Once().Run(count)

		w := worker.NewCallbackWorker(orders, q, m)
		require.NoError(t, w.Start(ctx))
		require.NoError(t, q.Publish(ctx, &model.CallbackMessage{Kind: model.CallbackKindPayment, Payment: &paid}))

		assert.Eventually(t, func() bool {
			return handled.Load() == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookFailuresTotal.WithLabelValues("payment")))
		orders.AssertExpectations(t)
	})

	t.Run("Failed - invalid callback is not retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		orders := mocks.NewOrderServiceMock()
		m := metrics.NewOrderMetrics(prometheus.NewRegistry())
		q := queue.NewMemoryCallbackQueue(10, 5)
		orders.On("HandleReservationCallback", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: unknown reservation action", apperrors.ErrValidation)).Once()

		w := worker.NewCallbackWorker(orders, q, m)
		require.NoError(t, w.Start(ctx))
		bad := model.ReservationCallback{OrderID: "order-3", Action: "EXTENDED"}
		require.NoError(t, q.Publish(ctx, &model.CallbackMessage{Kind: model.CallbackKindReservation, Reservation: &bad}))

		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(m.WebhookFailuresTotal.WithLabelValues("reservation")) == 1
		}, time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		orders.AssertNumberOfCalls(t, "HandleReservationCallback", 1)
	})
}
