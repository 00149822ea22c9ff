package client

import (
	"context"
	"net/http"

	"ticket-fulfillment/internal/model"
)

// ExpiryNotifier 通知訂單服務某些 hold 已被 sweeper 收回
type ExpiryNotifier interface {
	NotifyExpired(ctx context.Context, callback model.ReservationCallback) error
}

// WebhookExpiryNotifier POST 到訂單服務的 reservation webhook
type WebhookExpiryNotifier struct {
	client *Client
}

func NewWebhookExpiryNotifier(client *Client) ExpiryNotifier {
	return &WebhookExpiryNotifier{client: client}
}

func (n *WebhookExpiryNotifier) NotifyExpired(ctx context.Context, callback model.ReservationCallback) error {
	return n.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "",
		Body:   callback,
	})
}
