package model

type ChargeRequest struct {
	OrderID string        `json:"orderId"`
	Amount  float64       `json:"amount"`
	Method  PaymentMethod `json:"method"`
}

type ChargeResult struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

type RefundRequest struct {
	PaymentID string `json:"paymentId"`
}

type RefundResult struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// EventInfo catalog 回傳的活動資料
type EventInfo struct {
	EventID string `json:"eventId"`
	Status  string `json:"status"`
}

const EventStatusOnSale = "ON_SALE"
