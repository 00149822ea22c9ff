package model

import "time"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusHeld      SeatStatus = "HELD"
	SeatStatusAllocated SeatStatus = "ALLOCATED"
)

type HoldStatus string

const (
	HoldStatusHeld      HoldStatus = "HELD"
	HoldStatusAllocated HoldStatus = "ALLOCATED"
	HoldStatusReleased  HoldStatus = "RELEASED"
)

const DefaultHoldDuration = 900 * time.Second

// Seat 單一場次的一個座位
type Seat struct {
	EventID     string     `json:"eventId" db:"event_id"`
	SeatID      string     `json:"seatId" db:"seat_id"`
	Section     string     `json:"section" db:"section"`
	Row         string     `json:"row" db:"row"`
	Number      int        `json:"number" db:"seat_number"`
	Price       float64    `json:"price" db:"price"`
	Status      SeatStatus `json:"status" db:"status"`
	LastUpdated time.Time  `json:"lastUpdated" db:"last_updated"`
}

// SeatHold 結帳期間對座位的暫時佔用
type SeatHold struct {
	HoldID         string     `json:"holdId" db:"hold_id"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty" db:"idempotency_key"`
	OrderID        string     `json:"orderId" db:"order_id"`
	EventID        string     `json:"eventId" db:"event_id"`
	SeatID         string     `json:"seatId" db:"seat_id"`
	UserID         string     `json:"userId,omitempty" db:"user_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	ExpiresAt      time.Time  `json:"expiresAt" db:"expires_at"`
	Status         HoldStatus `json:"status" db:"status"`
}

// AllocatedSeat 配位快照中的一個座位
type AllocatedSeat struct {
	SeatID  string  `json:"seatId"`
	Section string  `json:"section"`
	Row     string  `json:"row"`
	Number  int     `json:"number"`
	Price   float64 `json:"price"`
}

type SeatAllocation struct {
	AllocationID string          `json:"allocationId" db:"allocation_id"`
	OrderID      string          `json:"orderId" db:"order_id"`
	EventID      string          `json:"eventId" db:"event_id"`
	Seats        []AllocatedSeat `json:"seats" db:"seats"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// ExpiredHold sweeper 釋放的 hold
type ExpiredHold struct {
	HoldID       string `json:"holdId"`
	OrderID      string `json:"orderId"`
	EventID      string `json:"eventId"`
	SeatID       string `json:"seatId"`
	SeatReleased bool   `json:"seatReleased"`
}

type ReserveRequest struct {
	OrderID         string   `json:"orderId" binding:"required"`
	EventID         string   `json:"eventId" binding:"required"`
	UserID          string   `json:"userId"`
	Seats           []string `json:"seats" binding:"required,min=1,dive,required"`
	DurationSeconds int      `json:"durationSeconds" binding:"omitempty,min=1"`
}

type ReservedSeat struct {
	HoldID string  `json:"holdId"`
	SeatID string  `json:"seatId"`
	Price  float64 `json:"price"`
}

type ReserveResponse struct {
	HoldIDs   []string       `json:"holdIds"`
	Reserved  []ReservedSeat `json:"reserved"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

type AllocateRequest struct {
	OrderID string   `json:"orderId" binding:"required"`
	EventID string   `json:"eventId" binding:"required"`
	Seats   []string `json:"seats" binding:"required,min=1,dive,required"`
	HoldIDs []string `json:"holdIds"`
}

type AllocateResponse struct {
	AllocationID string          `json:"allocationId"`
	Allocated    []AllocatedSeat `json:"allocated"`
}

// ReleaseRequest holdIds 與 seats 至少要有一個
type ReleaseRequest struct {
	OrderID string   `json:"orderId"`
	EventID string   `json:"eventId"`
	HoldIDs []string `json:"holdIds"`
	Seats   []string `json:"seats"`
}

type ReleaseResponse struct {
	Released int `json:"released"`
}

type SeatPricesRequest struct {
	EventID string   `json:"eventId" binding:"required"`
	Seats   []string `json:"seats" binding:"required,min=1,dive,required"`
}

type SeatPrice struct {
	SeatID string  `json:"seatId"`
	Price  float64 `json:"price"`
}

type SeatPricesResponse struct {
	Prices []SeatPrice `json:"prices"`
}

// PriceList 依請求順序取出價格
func (r *SeatPricesResponse) PriceList() []float64 {
	prices := make([]float64, 0, len(r.Prices))
	for _, p := range r.Prices {
		prices = append(prices, p.Price)
	}
	return prices
}
