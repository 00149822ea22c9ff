package model

import "time"

type PaymentCallbackStatus string

const (
	PaymentCallbackPaid   PaymentCallbackStatus = "PAID"
	PaymentCallbackFailed PaymentCallbackStatus = "FAILED"
)

type ReservationAction string

const ReservationActionExpired ReservationAction = "EXPIRED"

type PaymentCallback struct {
	OrderID   string                `json:"orderId" binding:"required"`
	Status    PaymentCallbackStatus `json:"status" binding:"required,oneof=PAID FAILED"`
	PaymentID string                `json:"paymentId"`
}

type ReservationCallback struct {
	OrderID string            `json:"orderId" binding:"required"`
	EventID string            `json:"eventId"`
	Seats   []string          `json:"seats"`
	Action  ReservationAction `json:"action" binding:"required,oneof=EXPIRED"`
}

type CallbackKind string

const (
	CallbackKindPayment     CallbackKind = "payment"
	CallbackKindReservation CallbackKind = "reservation"
)

// CallbackMessage webhook 進入佇列後的格式
type CallbackMessage struct {
	Kind        CallbackKind         `json:"kind"`
	Payment     *PaymentCallback     `json:"payment,omitempty"`
	Reservation *ReservationCallback `json:"reservation,omitempty"`
	ReceivedAt  time.Time            `json:"receivedAt"`
	Attempts    int                  `json:"attempts,omitempty"`
}

func (m *CallbackMessage) OrderID() string {
	switch {
	case m.Payment != nil:
		return m.Payment.OrderID
	case m.Reservation != nil:
		return m.Reservation.OrderID
	}
	return ""
}
