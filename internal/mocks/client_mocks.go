package mocks

import (
	"context"
	"time"

	"ticket-fulfillment/internal/events"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/queue"

	"github.com/stretchr/testify/mock"
)

type InventoryClientMock struct {
	mock.Mock
}

func NewInventoryClientMock() *InventoryClientMock {
	return &InventoryClientMock{}
}

func (m *InventoryClientMock) Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReserveResponse), args.Error(1)
}

func (m *InventoryClientMock) Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocateResponse), args.Error(1)
}

func (m *InventoryClientMock) Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReleaseResponse), args.Error(1)
}

func (m *InventoryClientMock) SeatPrices(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error) {
	args := m.Called(ctx, eventID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatPricesResponse), args.Error(1)
}

type PaymentClientMock struct {
	mock.Mock
}

func NewPaymentClientMock() *PaymentClientMock {
	return &PaymentClientMock{}
}

func (m *PaymentClientMock) Charge(ctx context.Context, req model.ChargeRequest, idempotencyKey string) (*model.ChargeResult, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChargeResult), args.Error(1)
}

func (m *PaymentClientMock) Refund(ctx context.Context, paymentID string) (*model.RefundResult, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundResult), args.Error(1)
}

type DirectoryClientMock struct {
	mock.Mock
}

func NewDirectoryClientMock() *DirectoryClientMock {
	return &DirectoryClientMock{}
}

func (m *DirectoryClientMock) UserExists(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *DirectoryClientMock) EventExists(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *DirectoryClientMock) EventStatus(ctx context.Context, eventID string) (string, error) {
	args := m.Called(ctx, eventID)
	return args.String(0), args.Error(1)
}

type ExpiryNotifierMock struct {
	mock.Mock
}

func NewExpiryNotifierMock() *ExpiryNotifierMock {
	return &ExpiryNotifierMock{}
}

func (m *ExpiryNotifierMock) NotifyExpired(ctx context.Context, callback model.ReservationCallback) error {
	args := m.Called(ctx, callback)
	return args.Error(0)
}

type InFlightTrackerMock struct {
	mock.Mock
}

func NewInFlightTrackerMock() *InFlightTrackerMock {
	return &InFlightTrackerMock{}
}

func (m *InFlightTrackerMock) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *InFlightTrackerMock) Release(ctx context.Context, key string, owner string) error {
	args := m.Called(ctx, key, owner)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func NewPublisherMock() *PublisherMock {
	return &PublisherMock{}
}

func (m *PublisherMock) PublishOrderEvent(ctx context.Context, event events.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type CallbackQueueMock struct {
	mock.Mock
}

func NewCallbackQueueMock() *CallbackQueueMock {
	return &CallbackQueueMock{}
}

func (m *CallbackQueueMock) Publish(ctx context.Context, msg *model.CallbackMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *CallbackQueueMock) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}
