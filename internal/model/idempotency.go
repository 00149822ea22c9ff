package model

import "time"

// OrderIdempotencyRecord 只在整個 saga 成功後寫入
type OrderIdempotencyRecord struct {
	Key       string    `json:"key" db:"key"`
	OrderID   string    `json:"orderId" db:"order_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}

// InventoryIdempotencyRecord 快取的 HTTP 回應，成功與失敗都會記錄
type InventoryIdempotencyRecord struct {
	Key          string    `json:"idempotencyKey" db:"idempotency_key"`
	ResponseCode int       `json:"responseCode" db:"response_code"`
	ResponseBody []byte    `json:"responseBody" db:"response_body"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
