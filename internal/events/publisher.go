package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ticket-fulfillment/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	TypeOrderConfirmed = "order.confirmed"
	TypeOrderCancelled = "order.cancelled"
)

// OrderEvent 訂單進入終態時送出的事件
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId"`
	EventID       string    `json:"eventId"`
	Seats         []string  `json:"seats"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         float64   `json:"total"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	Close() error
}

// RabbitPublisher 每種事件一個 durable queue，用 default exchange 投遞
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	for _, queue := range []string{TypeOrderConfirmed, TypeOrderCancelled} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq declare %s: %w", queue, err)
		}
	}

	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	// amqp channel 不是 goroutine-safe
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		logger.WithComponent("events").Error("publish failed",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher 未設定 RABBITMQ_URL 時使用
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
