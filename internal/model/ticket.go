package model

import "time"

// Ticket 付款與配位成功後發出的票券，一座位一張
type Ticket struct {
	TicketID string    `json:"ticketId" db:"ticket_id"`
	OrderID  string    `json:"orderId" db:"order_id"`
	EventID  string    `json:"eventId" db:"event_id"`
	Seat     string    `json:"seat" db:"seat"`
	Price    float64   `json:"price" db:"price"`
	IssuedAt time.Time `json:"issuedAt" db:"issued_at"`
}
