package queue_test

import (
	"context"
	"testing"
	"time"

	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentMessage(orderID string) *model.CallbackMessage {
	return &model.CallbackMessage{
		Kind:       model.CallbackKindPayment,
		Payment:    &model.PaymentCallback{OrderID: orderID, Status: model.PaymentCallbackPaid, PaymentID: "pay-1"},
		ReceivedAt: time.Now().UTC(),
	}
}

func receive(t *testing.T, ch <-chan queue.Delivery) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "channel closed")
		return d
	case <-time.After(time.Second):
		t.Fatal("timeout 未收到訊息")
	}
	return queue.Delivery{}
}

func TestMemoryCallbackQueue_PublishAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewMemoryCallbackQueue(10, 3)
	require.NoError(t, q.Publish(ctx, paymentMessage("order-1")))

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	d := receive(t, ch)
	require.NotNil(t, d.Data)
	assert.Equal(t, "order-1", d.Data.OrderID())
	assert.Equal(t, model.CallbackKindPayment, d.Data.Kind)
	d.Ack()
}

func TestMemoryCallbackQueue_NackRequeue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewMemoryCallbackQueue(10, 3)
	require.NoError(t, q.Publish(ctx, paymentMessage("order-2")))

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	first := receive(t, ch)
	first.Nack(true)

	second := receive(t, ch)
	assert.Equal(t, "order-2", second.Data.OrderID())
	assert.Equal(t, 1, second.Data.Attempts)
}

func TestMemoryCallbackQueue_DiscardsPoisonMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewMemoryCallbackQueue(10, 2)
	require.NoError(t, q.Publish(ctx, paymentMessage("order-3")))

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	receive(t, ch).Nack(true)
	receive(t, ch).Nack(true)

	select {
	case d := <-ch:
		t.Fatalf("poison message redelivered: %+v", d.Data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryCallbackQueue_PublishRespectsContext(t *testing.T) {
	q := queue.NewMemoryCallbackQueue(1, 0)
	require.NoError(t, q.Publish(context.Background(), paymentMessage("order-4")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, paymentMessage("order-5"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
