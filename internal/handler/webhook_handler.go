package handler

import (
	"fmt"
	"net/http"
	"time"

	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/queue"
	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

// WebhookHandler 只負責驗證與入列，實際處理交給 CallbackWorker
type WebhookHandler struct {
	queue queue.CallbackQueue
}

func NewWebhookHandler(queue queue.CallbackQueue) *WebhookHandler {
	return &WebhookHandler{queue: queue}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/v1/webhooks")
	{
		router.POST("payment", h.PaymentCallback)
		router.POST("reservation", h.ReservationCallback)
	}
}

func (h *WebhookHandler) PaymentCallback(c *gin.Context) {
	var callback model.PaymentCallback
	if err := BindJson(c, &callback); err != nil {
		return
	}

	h.enqueue(c, &model.CallbackMessage{
		Kind:       model.CallbackKindPayment,
		Payment:    &callback,
		ReceivedAt: time.Now().UTC(),
	}, "PaymentCallback")
}

func (h *WebhookHandler) ReservationCallback(c *gin.Context) {
	var callback model.ReservationCallback
	if err := BindJson(c, &callback); err != nil {
		return
	}

	h.enqueue(c, &model.CallbackMessage{
		Kind:        model.CallbackKindReservation,
		Reservation: &callback,
		ReceivedAt:  time.Now().UTC(),
	}, "ReservationCallback")
}

func (h *WebhookHandler) enqueue(c *gin.Context, msg *model.CallbackMessage, operation string) {
	if err := h.queue.Publish(c.Request.Context(), msg); err != nil {
		// 回 503 讓呼叫方重送
		handleError(c, fmt.Errorf("%w: enqueue callback: %v", apperrors.ErrUpstreamUnavailable, err), operation)
		return
	}
	handleSuccess(c, gin.H{"accepted": true}, http.StatusOK)
}
