package handler

import (
	"net/http"

	"ticket-fulfillment/internal/middleware"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/service"
	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/v1")
	{
		router.POST("orders", h.CreateOrder)
		router.GET("orders/:id", h.GetOrder)
		router.POST("orders/:id/cancel", h.CancelOrder)
	}
}

// CreateOrder 同一個 Idempotency-Key 重送會拿到第一次的結果
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	idempotencyKey := c.GetHeader(middleware.IdempotencyKeyHeader)
	if idempotencyKey == "" {
		handleError(c, apperrors.ErrIdempotencyKeyRequired, "CreateOrder")
		return
	}

	var orderReq model.CreateOrderRequest
	if err := BindJson(c, &orderReq); err != nil {
		return
	}

	result, err := h.service.CreateOrder(c.Request.Context(), orderReq, idempotencyKey)
	if err != nil {
		handleError(c, err, "CreateOrder")
		return
	}

	handleSuccess(c, result, http.StatusOK)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	result, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err, "GetOrder")
		return
	}

	handleSuccess(c, result, http.StatusOK)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.service.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err, "CancelOrder")
		return
	}

	handleSuccess(c, order, http.StatusOK)
}
