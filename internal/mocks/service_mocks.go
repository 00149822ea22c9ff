package mocks

import (
	"context"
	"time"

	"ticket-fulfillment/internal/model"

	"github.com/stretchr/testify/mock"
)

type OrderServiceMock struct {
	mock.Mock
}

func NewOrderServiceMock() *OrderServiceMock {
	return &OrderServiceMock{}
}

func (m *OrderServiceMock) CreateOrder(ctx context.Context, req model.CreateOrderRequest, idempotencyKey string) (*model.OrderWithTickets, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderWithTickets), args.Error(1)
}

func (m *OrderServiceMock) GetOrder(ctx context.Context, orderID string) (*model.OrderWithTickets, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderWithTickets), args.Error(1)
}

func (m *OrderServiceMock) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *OrderServiceMock) HandlePaymentCallback(ctx context.Context, callback model.PaymentCallback) error {
	args := m.Called(ctx, callback)
	return args.Error(0)
}

func (m *OrderServiceMock) HandleReservationCallback(ctx context.Context, callback model.ReservationCallback) error {
	args := m.Called(ctx, callback)
	return args.Error(0)
}

func (m *OrderServiceMock) PurgeIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type InventoryServiceMock struct {
	mock.Mock
}

func NewInventoryServiceMock() *InventoryServiceMock {
	return &InventoryServiceMock{}
}

func (m *InventoryServiceMock) Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReserveResponse), args.Error(1)
}

func (m *InventoryServiceMock) Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocateResponse), args.Error(1)
}

func (m *InventoryServiceMock) Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReleaseResponse), args.Error(1)
}

func (m *InventoryServiceMock) PriceQuote(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error) {
	args := m.Called(ctx, eventID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatPricesResponse), args.Error(1)
}

func (m *InventoryServiceMock) ListSeats(ctx context.Context, eventID string) ([]*model.Seat, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Seat), args.Error(1)
}

func (m *InventoryServiceMock) GetHold(ctx context.Context, holdID string) (*model.SeatHold, error) {
	args := m.Called(ctx, holdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatHold), args.Error(1)
}

func (m *InventoryServiceMock) ExpireHolds(ctx context.Context, now time.Time) ([]model.ExpiredHold, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExpiredHold), args.Error(1)
}
