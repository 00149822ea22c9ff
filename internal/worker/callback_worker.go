package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/queue"
	"ticket-fulfillment/internal/service"
	apperrors "ticket-fulfillment/pkg/app_errors"
	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

type CallbackWorker interface {
	// 訂閱 callback 隊列
	Start(ctx context.Context) error
	// Wait 等到訂閱結束（ctx 取消後）
	Wait()
}

type CallbackWorkerImpl struct {
	service service.OrderService
	queue   queue.CallbackQueue
	metrics *metrics.OrderMetrics
	wg      sync.WaitGroup
}

func NewCallbackWorker(service service.OrderService, queue queue.CallbackQueue, metrics *metrics.OrderMetrics) CallbackWorker {
	return &CallbackWorkerImpl{
		service: service,
		queue:   queue,
		metrics: metrics,
	}
}

func (w *CallbackWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe callbacks: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()
	return nil
}

func (w *CallbackWorkerImpl) Wait() {
	w.wg.Wait()
}

func (w *CallbackWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	log := logger.WithComponent("worker").With(
		zap.String("operation", "callback"),
		zap.String("kind", string(msg.Data.Kind)),
		zap.String("order_id", msg.Data.OrderID()),
		zap.Int("attempts", msg.Data.Attempts),
	)

	err := w.dispatch(ctx, msg.Data)
	if err == nil {
		msg.Ack()
		return
	}

	w.metrics.WebhookFailuresTotal.WithLabelValues(string(msg.Data.Kind)).Inc()
	if errors.Is(err, apperrors.ErrValidation) {
		// 重試也不會成功
		log.Warn("invalid callback dropped", zap.Error(err))
		msg.Nack(false)
		return
	}

	log.Warn("callback failed, requeue", zap.Error(err))
	msg.Nack(true)
}

func (w *CallbackWorkerImpl) dispatch(ctx context.Context, msg *model.CallbackMessage) error {
	switch {
	case msg.Kind == model.CallbackKindPayment && msg.Payment != nil:
		return w.service.HandlePaymentCallback(ctx, *msg.Payment)
	case msg.Kind == model.CallbackKindReservation && msg.Reservation != nil:
		return w.service.HandleReservationCallback(ctx, *msg.Reservation)
	}
	logger.WithComponent("worker").Warn("unknown callback dropped", zap.String("kind", string(msg.Kind)))
	return nil
}
