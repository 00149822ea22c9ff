package handler

import (
	"errors"
	"net/http"

	apperrors "ticket-fulfillment/pkg/app_errors"
	"ticket-fulfillment/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 非 production 時錯誤回應會附上 detail
var exposeErrorDetail = true

// ExposeErrorDetail 由啟動流程依環境設定
func ExposeErrorDetail(enabled bool) {
	exposeErrorDetail = enabled
}

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, withDetail(gin.H{
			"error": "Invalid request format",
		}, err))
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, withDetail(gin.H{
			"error": "Invalid request format",
		}, err))
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, withDetail(gin.H{
			"error": "Invalid request format",
		}, err))
		return err
	}
	return nil
}

type errorMapping struct {
	target  error
	status  int
	message string
}

// 依序比對。saga 的失敗會同時包住根因（例如 allocation failed + hold conflict），所以放最前面
var errorMappings = []errorMapping{
	{apperrors.ErrAllocationFailed, http.StatusInternalServerError, "Allocation failed"},
	{apperrors.ErrPricingFailed, http.StatusInternalServerError, "Pricing failed"},
	{apperrors.ErrPaymentDeclined, http.StatusPaymentRequired, "Payment declined"},

	{apperrors.ErrIdempotencyKeyRequired, http.StatusBadRequest, "Idempotency-Key header is required"},
	{apperrors.ErrValidation, http.StatusBadRequest, "Validation failed"},

	{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{apperrors.ErrEventNotFound, http.StatusNotFound, "Event not found"},
	{apperrors.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{apperrors.ErrSeatNotFound, http.StatusNotFound, "Seat not found"},
	{apperrors.ErrHoldNotFound, http.StatusNotFound, "Hold not found"},

	{apperrors.ErrSeatUnavailable, http.StatusConflict, "Seat unavailable"},
	{apperrors.ErrHoldConflict, http.StatusConflict, "Seat is not held by this order"},
	{apperrors.ErrEventNotOnSale, http.StatusConflict, "Event is not on sale"},
	{apperrors.ErrSeatConflict, http.StatusConflict, "Seat conflict"},
	{apperrors.ErrOrderConfirmed, http.StatusConflict, "Order already confirmed"},
	{apperrors.ErrRequestInProgress, http.StatusConflict, "Request with this idempotency key is in progress"},
	{apperrors.ErrVersionConflict, http.StatusConflict, "Order was modified concurrently"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, "Invalid order state"},

	{apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "Upstream service unavailable"},
}

// ErrorStatus 回傳錯誤對應的 HTTP status 與訊息
func ErrorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	status, message := ErrorStatus(err)

	body := gin.H{"error": message}
	if orderID, ok := apperrors.OrderIDOf(err); ok {
		body["orderId"] = orderID
	}
	if seatID, ok := apperrors.SeatIDOf(err); ok {
		body["seatId"] = seatID
	}

	if status >= http.StatusInternalServerError {
		log.Error(message)
	} else {
		log.Warn(message)
	}
	c.JSON(status, withDetail(body, err))
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}

func withDetail(body gin.H, err error) gin.H {
	if exposeErrorDetail && err != nil {
		body["detail"] = err.Error()
	}
	return body
}
