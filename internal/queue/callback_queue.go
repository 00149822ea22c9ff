package queue

import (
	"context"

	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

type Delivery struct {
	Data *model.CallbackMessage
	Ack  func()
	Nack func(requeue bool)
}

// CallbackQueue webhook 先進佇列，再由 worker 非同步處理
type CallbackQueue interface {
	// 發送 callback 到隊列
	Publish(ctx context.Context, msg *model.CallbackMessage) error
	// 訂閱 callback 隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryCallbackQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch            chan *model.CallbackMessage
	maxRetryCount int
}

// NewMemoryCallbackQueue 單機與測試使用；maxRetryCount <= 0 時不限重試次數
func NewMemoryCallbackQueue(bufferSize int, maxRetryCount int) CallbackQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &MemoryCallbackQueueImpl{
		ch:            make(chan *model.CallbackMessage, bufferSize),
		maxRetryCount: maxRetryCount,
	}
}

func (q *MemoryCallbackQueueImpl) Publish(ctx context.Context, msg *model.CallbackMessage) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryCallbackQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: msg,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						msg.Attempts++
						if q.maxRetryCount > 0 && msg.Attempts >= q.maxRetryCount {
							logger.WithComponent("mq").Warn("discard poison message",
								zap.String("order_id", msg.OrderID()),
								zap.Int("retries", msg.Attempts),
							)
							return
						}
						// 不阻塞 worker：重新排入交給另一個 goroutine
						go func() {
							select {
							case q.ch <- msg:
							case <-ctx.Done():
							}
						}()
					},
				}

				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
