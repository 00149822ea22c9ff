package service

import (
	"fmt"

	"ticket-fulfillment/internal/model"
	apperrors "ticket-fulfillment/pkg/app_errors"
)

// SagaEvent 推動訂單狀態的事件
type SagaEvent string

const (
	EventReserveFailed         SagaEvent = "ReserveFailed"
	EventPriced                SagaEvent = "Priced"
	EventPricingFailed         SagaEvent = "PricingFailed"
	EventPaymentDeclined       SagaEvent = "PaymentDeclined"
	EventAllocationFailed      SagaEvent = "AllocationFailed"
	EventFulfilled             SagaEvent = "Fulfilled"
	EventPaymentCallbackFailed SagaEvent = "PaymentCallbackFailed"
	EventReservationExpired    SagaEvent = "ReservationExpired"
	EventClientCancel          SagaEvent = "ClientCancel"
)

// Compensation 失敗時要回補的動作
type Compensation string

const (
	CompensateReleaseSeats  Compensation = "release_seats"
	CompensateRefundPayment Compensation = "refund_payment"
)

// Transition 表格中的一格
type Transition struct {
	To            model.OrderStatus
	PaymentStatus model.PaymentStatus // 空字串表示不變
	Compensations []Compensation
}

type transitionKey struct {
	from  model.OrderStatus
	event SagaEvent
}

var sagaTransitions = map[transitionKey]Transition{
	{model.OrderStatusCreated, EventReserveFailed}: {To: model.OrderStatusCancelled},
	{model.OrderStatusCreated, EventPriced}:        {To: model.OrderStatusPendingPayment},
	{model.OrderStatusCreated, EventPricingFailed}: {
		To:            model.OrderStatusCancelled,
		Compensations: []Compensation{CompensateReleaseSeats},
	},
	{model.OrderStatusPendingPayment, EventPaymentDeclined}: {
		To:            model.OrderStatusCancelled,
		PaymentStatus: model.PaymentStatusFailed,
		Compensations: []Compensation{CompensateReleaseSeats},
	},
	{model.OrderStatusPendingPayment, EventAllocationFailed}: {
		To:            model.OrderStatusCancelled,
		PaymentStatus: model.PaymentStatusFailed,
		Compensations: []Compensation{CompensateRefundPayment, CompensateReleaseSeats},
	},
	{model.OrderStatusPendingPayment, EventFulfilled}: {
		To:            model.OrderStatusConfirmed,
		PaymentStatus: model.PaymentStatusPaid,
	},
	{model.OrderStatusPendingPayment, EventPaymentCallbackFailed}: {
		To:            model.OrderStatusCancelled,
		PaymentStatus: model.PaymentStatusFailed,
		Compensations: []Compensation{CompensateReleaseSeats},
	},
	{model.OrderStatusCreated, EventReservationExpired}: {
		To:            model.OrderStatusCancelled,
		Compensations: []Compensation{CompensateReleaseSeats, CompensateRefundPayment},
	},
	{model.OrderStatusPendingPayment, EventReservationExpired}: {
		To:            model.OrderStatusCancelled,
		Compensations: []Compensation{CompensateReleaseSeats, CompensateRefundPayment},
	},
	{model.OrderStatusCreated, EventClientCancel}: {
		To:            model.OrderStatusCancelled,
		Compensations: []Compensation{CompensateReleaseSeats, CompensateRefundPayment},
	},
	{model.OrderStatusPendingPayment, EventClientCancel}: {
		To:            model.OrderStatusCancelled,
		Compensations: []Compensation{CompensateReleaseSeats, CompensateRefundPayment},
	},
}

// NextTransition 查表；未定義的組合回傳 ErrInvalidTransition
func NextTransition(from model.OrderStatus, event SagaEvent) (Transition, error) {
	t, ok := sagaTransitions[transitionKey{from, event}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", apperrors.ErrInvalidTransition, event, from)
	}
	return t, nil
}

// Apply 把轉換套到訂單副本上，退款只在有付款編號時保留
func (t Transition) Apply(order *model.Order) (*model.Order, []Compensation) {
	next := order.Clone()
	next.Status = t.To
	if t.PaymentStatus != "" {
		next.PaymentStatus = t.PaymentStatus
	}

	compensations := make([]Compensation, 0, len(t.Compensations))
	for _, c := range t.Compensations {
		if c == CompensateRefundPayment && !order.HasPayment() {
			continue
		}
		compensations = append(compensations, c)
	}
	return next, compensations
}

// cancelReason 給 metrics 與事件使用
func cancelReason(event SagaEvent) string {
	switch event {
	case EventReserveFailed:
		return "reserve_failed"
	case EventPricingFailed:
		return "pricing_failed"
	case EventPaymentDeclined, EventPaymentCallbackFailed:
		return "payment_failed"
	case EventAllocationFailed:
		return "allocation_failed"
	case EventReservationExpired:
		return "reservation_expired"
	case EventClientCancel:
		return "client_cancel"
	}
	return "unknown"
}
