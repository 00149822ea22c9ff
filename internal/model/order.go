package model

import "time"

// OrderStatus 訂單狀態類型
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "CREATED"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodNetBanking PaymentMethod = "NETBANKING"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetBanking:
		return true
	}
	return false
}

// Order 訂單模型
type Order struct {
	OrderID       string        `json:"orderId" db:"order_id"`
	UserID        string        `json:"userId" db:"user_id"`
	EventID       string        `json:"eventId" db:"event_id"`
	Seats         []string      `json:"seats" db:"seats"`
	SeatPrices    []float64     `json:"seatPrices,omitempty" db:"seat_prices"`
	HoldIDs       []string      `json:"holdIds,omitempty" db:"hold_ids"`
	Total         float64       `json:"total" db:"total"`
	Tax           float64       `json:"tax" db:"tax"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentMethod PaymentMethod `json:"paymentMethod" db:"payment_method"`
	PaymentID     string        `json:"paymentId,omitempty" db:"payment_id"`
	Version       int           `json:"version" db:"version"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// HasPayment 是否已記錄付款編號（退款需要）
func (o *Order) HasPayment() bool {
	return o.PaymentID != ""
}

// Clone 回傳可獨立修改的副本
func (o *Order) Clone() *Order {
	c := *o
	c.Seats = append([]string(nil), o.Seats...)
	c.SeatPrices = append([]float64(nil), o.SeatPrices...)
	c.HoldIDs = append([]string(nil), o.HoldIDs...)
	return &c
}

// CreateOrderRequest 創建訂單請求
type CreateOrderRequest struct {
	UserID        string        `json:"userId" binding:"required"`
	EventID       string        `json:"eventId" binding:"required"`
	Seats         []string      `json:"seats" binding:"required,min=1,dive,required"`
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required,oneof=UPI CARD NETBANKING"`
}

// OrderWithTickets 訂單與票券的回應
type OrderWithTickets struct {
	Order   *Order    `json:"order"`
	Tickets []*Ticket `json:"tickets"`
}
