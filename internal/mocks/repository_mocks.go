package mocks

import (
	"context"
	"time"

	"ticket-fulfillment/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type OrderRepositoryMock struct {
	mock.Mock
}

func NewOrderRepositoryMock() *OrderRepositoryMock {
	return &OrderRepositoryMock{}
}

func (m *OrderRepositoryMock) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *OrderRepositoryMock) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *OrderRepositoryMock) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *OrderRepositoryMock) UpdateTx(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, tx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

type TicketRepositoryMock struct {
	mock.Mock
}

func NewTicketRepositoryMock() *TicketRepositoryMock {
	return &TicketRepositoryMock{}
}

func (m *TicketRepositoryMock) FindByOrderID(ctx context.Context, orderID string) ([]*model.Ticket, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	args := m.Called(ctx, tx, tickets)
	return args.Error(0)
}

type OrderIdempotencyRepositoryMock struct {
	mock.Mock
}

func NewOrderIdempotencyRepositoryMock() *OrderIdempotencyRepositoryMock {
	return &OrderIdempotencyRepositoryMock{}
}

func (m *OrderIdempotencyRepositoryMock) Find(ctx context.Context, key string, now time.Time) (string, error) {
	args := m.Called(ctx, key, now)
	return args.String(0), args.Error(1)
}

func (m *OrderIdempotencyRepositoryMock) Save(ctx context.Context, key string, orderID string, now time.Time, ttl time.Duration) error {
	args := m.Called(ctx, key, orderID, now, ttl)
	return args.Error(0)
}

func (m *OrderIdempotencyRepositoryMock) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type InventoryIdempotencyRepositoryMock struct {
	mock.Mock
}

func NewInventoryIdempotencyRepositoryMock() *InventoryIdempotencyRepositoryMock {
	return &InventoryIdempotencyRepositoryMock{}
}

func (m *InventoryIdempotencyRepositoryMock) Find(ctx context.Context, key string) (*model.InventoryIdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InventoryIdempotencyRecord), args.Error(1)
}

func (m *InventoryIdempotencyRepositoryMock) Save(ctx context.Context, record *model.InventoryIdempotencyRecord) (*model.InventoryIdempotencyRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InventoryIdempotencyRecord), args.Error(1)
}
