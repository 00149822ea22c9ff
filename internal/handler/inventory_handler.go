package handler

import (
	"net/http"

	"ticket-fulfillment/internal/middleware"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	service     service.InventoryService
	idempotency gin.HandlerFunc
}

// NewInventoryHandler idempotency 只掛在 reserve 上，可為 nil
func NewInventoryHandler(service service.InventoryService, idempotency gin.HandlerFunc) *InventoryHandler {
	return &InventoryHandler{service: service, idempotency: idempotency}
}

type listSeatsQuery struct {
	EventID string `form:"eventId" binding:"required"`
}

type holdUri struct {
	HoldID string `uri:"id" binding:"required"`
}

func (h *InventoryHandler) RegisterRoutes(r *gin.Engine) {
	reserve := []gin.HandlerFunc{h.Reserve}
	if h.idempotency != nil {
		reserve = append([]gin.HandlerFunc{h.idempotency}, reserve...)
	}

	router := r.Group("/v1/seats")
	{
		router.GET("", h.ListSeats)
		router.GET("holds/:id", h.GetHold)
		router.POST("reserve", reserve...)
		router.POST("allocate", h.Allocate)
		router.POST("release", h.Release)
		router.POST("seat-prices", h.SeatPrices)
	}
}

func (h *InventoryHandler) ListSeats(c *gin.Context) {
	var query listSeatsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	seats, err := h.service.ListSeats(c.Request.Context(), query.EventID)
	if err != nil {
		handleError(c, err, "ListSeats")
		return
	}

	handleSuccess(c, gin.H{"seats": seats}, http.StatusOK)
}

func (h *InventoryHandler) GetHold(c *gin.Context) {
	var uri holdUri
	if err := BindUri(c, &uri); err != nil {
		return
	}

	hold, err := h.service.GetHold(c.Request.Context(), uri.HoldID)
	if err != nil {
		handleError(c, err, "GetHold")
		return
	}

	handleSuccess(c, hold, http.StatusOK)
}

func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req model.ReserveRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	resp, err := h.service.Reserve(c.Request.Context(), req, c.GetHeader(middleware.IdempotencyKeyHeader))
	if err != nil {
		handleError(c, err, "Reserve")
		return
	}

	handleSuccess(c, resp, http.StatusOK)
}

func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req model.AllocateRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	resp, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		handleError(c, err, "Allocate")
		return
	}

	handleSuccess(c, resp, http.StatusOK)
}

func (h *InventoryHandler) Release(c *gin.Context) {
	var req model.ReleaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	resp, err := h.service.Release(c.Request.Context(), req)
	if err != nil {
		handleError(c, err, "Release")
		return
	}

	handleSuccess(c, resp, http.StatusOK)
}

func (h *InventoryHandler) SeatPrices(c *gin.Context) {
	var req model.SeatPricesRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	resp, err := h.service.PriceQuote(c.Request.Context(), req.EventID, req.Seats)
	if err != nil {
		handleError(c, err, "SeatPrices")
		return
	}

	handleSuccess(c, resp, http.StatusOK)
}
