package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")

	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrSeatNotFound  = errors.New("seat not found")
	ErrHoldNotFound  = errors.New("hold not found")

	ErrSeatUnavailable   = errors.New("seat unavailable")
	ErrHoldConflict      = errors.New("hold conflict")
	ErrEventNotOnSale    = errors.New("event not on sale")
	ErrSeatConflict      = errors.New("seat conflict")
	ErrOrderConfirmed    = errors.New("order already confirmed")
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

	ErrPaymentDeclined  = errors.New("payment declined")
	ErrPricingFailed    = errors.New("pricing failed")
	ErrAllocationFailed = errors.New("allocation failed")

	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrVersionConflict   = errors.New("order version conflict")
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// SeatError 帶上出錯的座位
type SeatError struct {
	SeatID string
	Err    error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.SeatID)
}

func (e *SeatError) Unwrap() error {
	return e.Err
}

func NewSeatError(seatID string, err error) error {
	return &SeatError{SeatID: seatID, Err: err}
}

// OrderError 帶上出錯的訂單
type OrderError struct {
	OrderID string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func NewOrderError(orderID string, err error) error {
	return &OrderError{OrderID: orderID, Err: err}
}

// SeatIDOf 回傳錯誤鏈中的座位 ID
func SeatIDOf(err error) (string, bool) {
	var seatErr *SeatError
	if errors.As(err, &seatErr) {
		return seatErr.SeatID, true
	}
	return "", false
}

// OrderIDOf 回傳錯誤鏈中的訂單 ID
func OrderIDOf(err error) (string, bool) {
	var orderErr *OrderError
	if errors.As(err, &orderErr) {
		return orderErr.OrderID, true
	}
	return "", false
}
