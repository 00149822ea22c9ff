package repository_test

import (
	"testing"
	"time"

	"ticket-fulfillment/internal/model"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	orderCols = []string{
		"order_id", "user_id", "event_id", "seats", "seat_prices", "hold_ids",
		"total", "tax", "status", "payment_status", "payment_method", "payment_id",
		"version", "created_at", "updated_at",
	}
	seatCols = []string{"event_id", "seat_id", "section", "row", "seat_number", "price", "status", "last_updated"}
	holdCols = []string{
		"hold_id", "idempotency_key", "order_id", "event_id", "seat_id", "user_id",
		"created_at", "expires_at", "status",
	}
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func orderRow(o *model.Order) []any {
	return []any{
		o.OrderID, o.UserID, o.EventID, o.Seats, o.SeatPrices, o.HoldIDs,
		o.Total, o.Tax, o.Status, o.PaymentStatus, o.PaymentMethod, o.PaymentID,
		o.Version, o.CreatedAt, o.UpdatedAt,
	}
}

func sampleOrder() *model.Order {
	return &model.Order{
		OrderID:       "order-1",
		UserID:        "user-1",
		EventID:       "E1",
		Seats:         []string{"A1", "A2"},
		SeatPrices:    []float64{},
		HoldIDs:       []string{},
		Status:        model.OrderStatusCreated,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: model.PaymentMethodCard,
		Version:       1,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
}

func holdRow(h *model.SeatHold) []any {
	return []any{h.HoldID, h.IdempotencyKey, h.OrderID, h.EventID, h.SeatID, h.UserID, h.CreatedAt, h.ExpiresAt, h.Status}
}
