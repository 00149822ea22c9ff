package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/mocks"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/service"
	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeOrderRepository 記憶體版訂單表，Update 與資料庫一樣以 version 做 CAS
type fakeOrderRepository struct {
	mu      sync.Mutex
	orders  map[string]*model.Order
	lastID  string
	history []model.OrderStatus

	// conflicts > 0 時，下一次 Update 前先模擬別人搶先寫入
	conflicts int
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: map[string]*model.Order{}}
}

func (f *fakeOrderRepository) put(order *model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.OrderID] = order.Clone()
}

func (f *fakeOrderRepository) get(orderID string) *model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil
	}
	return o.Clone()
}

func (f *fakeOrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := order.Clone()
	created.Version = 1
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	f.orders[created.OrderID] = created
	f.lastID = created.OrderID
	f.history = append(f.history, created.Status)
	return created.Clone(), nil
}

func (f *fakeOrderRepository) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	if o := f.get(orderID); o != nil {
		return o, nil
	}
	return nil, apperrors.ErrOrderNotFound
}

func (f *fakeOrderRepository) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.orders[order.OrderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		current.Version++
	}
	if current.Version != order.Version {
		return nil, apperrors.ErrVersionConflict
	}

	updated := order.Clone()
	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	f.orders[order.OrderID] = updated
	f.history = append(f.history, updated.Status)
	return updated.Clone(), nil
}

func (f *fakeOrderRepository) UpdateTx(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	return f.Update(ctx, order)
}

type sagaFixture struct {
	pool      pgxmock.PgxPoolIface
	orders    *fakeOrderRepository
	tickets   *mocks.TicketRepositoryMock
	ledger    *mocks.OrderIdempotencyRepositoryMock
	inventory *mocks.InventoryClientMock
	payments  *mocks.PaymentClientMock
	directory *mocks.DirectoryClientMock
	inflight  *mocks.InFlightTrackerMock
	publisher *mocks.PublisherMock
	metrics   *metrics.OrderMetrics
	svc       service.OrderService
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &sagaFixture{
		pool:      pool,
		orders:    newFakeOrderRepository(),
		tickets:   mocks.NewTicketRepositoryMock(),
		ledger:    mocks.NewOrderIdempotencyRepositoryMock(),
		inventory: mocks.NewInventoryClientMock(),
		payments:  mocks.NewPaymentClientMock(),
		directory: mocks.NewDirectoryClientMock(),
		inflight:  mocks.NewInFlightTrackerMock(),
		publisher: mocks.NewPublisherMock(),
		metrics:   metrics.NewOrderMetrics(prometheus.NewRegistry()),
	}
	f.publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = service.NewOrderService(service.OrderServiceDeps{
		Pool:      pool,
		Orders:    f.orders,
		Tickets:   f.tickets,
		Ledger:    f.ledger,
		Inventory: f.inventory,
		Payments:  f.payments,
		Directory: f.directory,
		InFlight:  f.inflight,
		Publisher: f.publisher,
		Metrics:   f.metrics,
		Saga: config.SagaConfig{
			HoldDuration:   900 * time.Second,
			IdempotencyTTL: time.Hour,
			InFlightTTL:    15 * time.Minute,
		},
	})
	return f
}

// allowInFlight 標記永遠取得成功
func (f *sagaFixture) allowInFlight() {
	f.inflight.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Maybe()
	f.inflight.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *sagaFixture) assertMocks(t *testing.T) {
	t.Helper()
	f.tickets.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
	f.inventory.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.directory.AssertExpectations(t)
	f.inflight.AssertExpectations(t)
}

func seedOrder(f *sagaFixture, status model.OrderStatus, paymentID string) *model.Order {
	order := &model.Order{
		OrderID:       "order-1",
		UserID:        "user-1",
		EventID:       "E1",
		Seats:         []string{"A1", "A2"},
		SeatPrices:    []float64{100, 100},
		HoldIDs:       []string{"h1", "h2"},
		Total:         210,
		Tax:           10,
		Status:        status,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: model.PaymentMethodCard,
		PaymentID:     paymentID,
		Version:       3,
	}
	f.orders.put(order)
	return order
}

func createRequest() model.CreateOrderRequest {
	return model.CreateOrderRequest{
		UserID:        "user-1",
		EventID:       "E1",
		Seats:         []string{"A1", "A2"},
		PaymentMethod: model.PaymentMethodCard,
	}
}

func releaseFor(orderID string) any {
	return mock.MatchedBy(func(req model.ReleaseRequest) bool {
		return req.OrderID == orderID && req.EventID == "E1" && len(req.Seats) == 2
	})
}
