package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/mocks"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/repository"
	"ticket-fulfillment/internal/service"
	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	seatCols = []string{"event_id", "seat_id", "section", "row", "seat_number", "price", "status", "last_updated"}
	holdCols = []string{
		"hold_id", "idempotency_key", "order_id", "event_id", "seat_id", "user_id",
		"created_at", "expires_at", "status",
	}
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

const (
	lockSeatSQL         = `SELECT .* FROM seat_availability WHERE event_id = \$1 AND seat_id = \$2 FOR UPDATE`
	updateSeatSQL       = `UPDATE seat_availability\s+SET status = \$1, last_updated = \$2`
	releaseSeatSQL      = `UPDATE seat_availability s\s+SET status = 'AVAILABLE'`
	insertHoldSQL       = `INSERT INTO seat_holds`
	activeHoldSQL       = `FROM seat_holds WHERE event_id = \$1 AND seat_id = \$2 AND status = 'HELD'`
	activeHoldsSQL      = `FROM seat_holds\s+WHERE event_id = \$1 AND seat_id = ANY\(\$2\)`
	holdByIDSQL         = `FROM seat_holds WHERE hold_id = \$1`
	expiredHoldsSQL     = `FROM seat_holds\s+WHERE status = 'HELD' AND expires_at <= \$1`
	markAllocatedSQL    = `UPDATE seat_holds SET status = 'ALLOCATED' WHERE hold_id = \$1 AND status = 'HELD'`
	markReleasedSQL     = `UPDATE seat_holds SET status = 'RELEASED' WHERE hold_id = \$1 AND status = 'HELD'`
	markExpiredSQL      = `UPDATE seat_holds SET status = 'RELEASED' WHERE hold_id = \$1 AND status = 'HELD' AND expires_at <= \$2`
	insertAllocationSQL = `INSERT INTO seat_allocations`
)

type inventoryFixture struct {
	pool    pgxmock.PgxPoolIface
	catalog *mocks.DirectoryClientMock
	metrics *metrics.InventoryMetrics
	svc     service.InventoryService
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &inventoryFixture{
		pool:    pool,
		catalog: mocks.NewDirectoryClientMock(),
		metrics: metrics.NewInventoryMetrics(prometheus.NewRegistry()),
	}
	f.svc = service.NewInventoryService(
		pool,
		repository.NewSeatRepository(pool),
		repository.NewHoldRepository(pool),
		repository.NewAllocationRepository(),
		f.catalog,
		f.metrics,
		15*time.Minute,
	)
	return f
}

func seatRows(seatID string, status model.SeatStatus, price float64) *pgxmock.Rows {
	return pgxmock.NewRows(seatCols).AddRow("E1", seatID, "A", "1", 1, price, status, fixedNow)
}

func holdRows(holds ...*model.SeatHold) *pgxmock.Rows {
	rows := pgxmock.NewRows(holdCols)
	for _, h := range holds {
		rows.AddRow(h.HoldID, h.IdempotencyKey, h.OrderID, h.EventID, h.SeatID, h.UserID, h.CreatedAt, h.ExpiresAt, h.Status)
	}
	return rows
}

func heldBy(holdID, orderID, seatID string) *model.SeatHold {
	return &model.SeatHold{
		HoldID:    holdID,
		OrderID:   orderID,
		EventID:   "E1",
		SeatID:    seatID,
		CreatedAt: fixedNow.Add(-20 * time.Minute),
		ExpiresAt: fixedNow.Add(-5 * time.Minute),
		Status:    model.HoldStatusHeld,
	}
}

func (f *inventoryFixture) expectReserveSeat(seatID string, price float64) {
	f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", seatID).
		WillReturnRows(seatRows(seatID, model.SeatStatusAvailable, price))
	f.pool.ExpectExec(updateSeatSQL).WithArgs(model.SeatStatusHeld, pgxmock.AnyArg(), "E1", seatID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec(insertHoldSQL).
		WithArgs(pgxmock.AnyArg(), "key-1", "order-1", "E1", seatID, "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), model.HoldStatusHeld).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func reserveRequest(seats ...string) model.ReserveRequest {
	return model.ReserveRequest{OrderID: "order-1", EventID: "E1", UserID: "user-1", Seats: seats, DurationSeconds: 60}
}

func TestInventoryService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.catalog.On("EventStatus", mock.Anything, "E1").Return(model.EventStatusOnSale, nil).Once()
		f.pool.ExpectBegin()
		f.expectReserveSeat("A1", 100)
		f.expectReserveSeat("A2", 250)
		f.pool.ExpectCommit()

		before := time.Now().UTC()
		resp, err := f.svc.Reserve(ctx, reserveRequest("A1", "A2"), "key-1")
		require.NoError(t, err)

		require.Len(t, resp.HoldIDs, 2)
		assert.NotEqual(t, resp.HoldIDs[0], resp.HoldIDs[1])
		assert.Equal(t, "A2", resp.Reserved[1].SeatID)
		assert.Equal(t, 250.0, resp.Reserved[1].Price)
		assert.WithinDuration(t, before.Add(60*time.Second), resp.ExpiresAt, 5*time.Second)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsTotal))
		require.NoError(t, f.pool.ExpectationsWereMet())
		f.catalog.AssertExpectations(t)
	})

	t.Run("Failed - ErrSeatUnavailable rolls back every seat", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.catalog.On("EventStatus", mock.Anything, "E1").Return(model.EventStatusOnSale, nil).Once()
		f.pool.ExpectBegin()
		f.expectReserveSeat("A1", 100)
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A2").
			WillReturnRows(seatRows("A2", model.SeatStatusHeld, 250))
		f.pool.ExpectRollback()

		_, err := f.svc.Reserve(ctx, reserveRequest("A1", "A2"), "key-1")
		assert.ErrorIs(t, err, apperrors.ErrSeatUnavailable)
		seatID, ok := apperrors.SeatIDOf(err)
		assert.True(t, ok)
		assert.Equal(t, "A2", seatID)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsFailedTotal.WithLabelValues("seat_unavailable")))
		assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ReservationsTotal))
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - ErrSeatNotFound", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.catalog.On("EventStatus", mock.Anything, "E1").Return(model.EventStatusOnSale, nil).Once()
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "Z9").WillReturnError(pgx.ErrNoRows)
		f.pool.ExpectRollback()

		_, err := f.svc.Reserve(ctx, reserveRequest("Z9"), "key-1")
		assert.ErrorIs(t, err, apperrors.ErrSeatNotFound)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsFailedTotal.WithLabelValues("seat_not_found")))
	})

	t.Run("Failed - ErrEventNotOnSale before any lock", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.catalog.On("EventStatus", mock.Anything, "E1").Return("SOLD_OUT", nil).Once()

		_, err := f.svc.Reserve(ctx, reserveRequest("A1"), "key-1")
		assert.ErrorIs(t, err, apperrors.ErrEventNotOnSale)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsFailedTotal.WithLabelValues("not_on_sale")))
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - ErrValidation", func(t *testing.T) {
		f := newInventoryFixture(t)
		_, err := f.svc.Reserve(ctx, model.ReserveRequest{OrderID: "order-1", EventID: "E1"}, "key-1")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		f.catalog.AssertNotCalled(t, "EventStatus", mock.Anything, mock.Anything)
	})
}

func TestInventoryService_Allocate(t *testing.T) {
	ctx := context.Background()
	req := model.AllocateRequest{OrderID: "order-1", EventID: "E1", Seats: []string{"A1"}, HoldIDs: []string{"h1"}}

	t.Run("Success", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectQuery(activeHoldSQL).WithArgs("E1", "A1").WillReturnRows(holdRows(heldBy("h1", "order-1", "A1")))
		f.pool.ExpectExec(markAllocatedSQL).WithArgs("h1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(updateSeatSQL).WithArgs(model.SeatStatusAllocated, pgxmock.AnyArg(), "E1", "A1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(insertAllocationSQL).
			WithArgs(pgxmock.AnyArg(), "order-1", "E1", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		f.pool.ExpectCommit()

		resp, err := f.svc.Allocate(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AllocationID)
		require.Len(t, resp.Allocated, 1)
		assert.Equal(t, "A1", resp.Allocated[0].SeatID)
		assert.Equal(t, 100.0, resp.Allocated[0].Price)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AllocationsTotal))
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - ErrHoldConflict hold owned by another order", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectQuery(activeHoldSQL).WithArgs("E1", "A1").WillReturnRows(holdRows(heldBy("h9", "order-9", "A1")))
		f.pool.ExpectRollback()

		_, err := f.svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrHoldConflict)
		assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.AllocationsTotal))
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - ErrHoldConflict seat released by sweeper", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusAvailable, 100))
		f.pool.ExpectRollback()

		_, err := f.svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrHoldConflict)
		seatID, _ := apperrors.SeatIDOf(err)
		assert.Equal(t, "A1", seatID)
	})

	t.Run("Failed - ErrHoldConflict no active hold", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectQuery(activeHoldSQL).WithArgs("E1", "A1").WillReturnError(pgx.ErrNoRows)
		f.pool.ExpectRollback()

		_, err := f.svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrHoldConflict)
	})
}

func TestInventoryService_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - by hold ids skips unknown holds", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(holdByIDSQL).WithArgs("h1").WillReturnRows(holdRows(heldBy("h1", "order-1", "A1")))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectExec(markReleasedSQL).WithArgs("h1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(releaseSeatSQL).WithArgs(pgxmock.AnyArg(), "E1", "A1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectQuery(holdByIDSQL).WithArgs("h-missing").WillReturnError(pgx.ErrNoRows)
		f.pool.ExpectCommit()

		resp, err := f.svc.Release(ctx, model.ReleaseRequest{OrderID: "order-1", HoldIDs: []string{"h1", "h-missing"}})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Released)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReleasesTotal))
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Success - hold of another order untouched", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(holdByIDSQL).WithArgs("h9").WillReturnRows(holdRows(heldBy("h9", "order-9", "A1")))
		f.pool.ExpectCommit()

		resp, err := f.svc.Release(ctx, model.ReleaseRequest{OrderID: "order-1", HoldIDs: []string{"h9"}})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Released)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Success - by seats", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectQuery(activeHoldsSQL).WithArgs("E1", []string{"A1"}, "order-1").
			WillReturnRows(holdRows(heldBy("h1", "order-1", "A1")))
		f.pool.ExpectExec(markReleasedSQL).WithArgs("h1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(releaseSeatSQL).WithArgs(pgxmock.AnyArg(), "E1", "A1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "Z9").WillReturnError(pgx.ErrNoRows)
		f.pool.ExpectCommit()

		resp, err := f.svc.Release(ctx, model.ReleaseRequest{OrderID: "order-1", EventID: "E1", Seats: []string{"A1", "Z9"}})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Released)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - ErrValidation", func(t *testing.T) {
		f := newInventoryFixture(t)

		_, err := f.svc.Release(ctx, model.ReleaseRequest{OrderID: "order-1"})
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = f.svc.Release(ctx, model.ReleaseRequest{Seats: []string{"A1"}})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestInventoryService_PriceQuote(t *testing.T) {
	ctx := context.Background()
	quoteSQL := `SELECT .* FROM seat_availability WHERE event_id = \$1 AND seat_id = ANY\(\$2\)`

	t.Run("Success - prices follow request order", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectQuery(quoteSQL).WithArgs("E1", []string{"A2", "A1"}).
			WillReturnRows(pgxmock.NewRows(seatCols).
				AddRow("E1", "A1", "A", "1", 1, 100.0, model.SeatStatusAvailable, fixedNow).
				AddRow("E1", "A2", "A", "1", 2, 250.0, model.SeatStatusAvailable, fixedNow))

		resp, err := f.svc.PriceQuote(ctx, "E1", []string{"A2", "A1"})
		require.NoError(t, err)
		assert.Equal(t, []float64{250, 100}, resp.PriceList())
		assert.Equal(t, "A2", resp.Prices[0].SeatID)
	})

	t.Run("Failed - ErrSeatNotFound", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectQuery(quoteSQL).WithArgs("E1", []string{"A1", "Z9"}).
			WillReturnRows(pgxmock.NewRows(seatCols).
				AddRow("E1", "A1", "A", "1", 1, 100.0, model.SeatStatusAvailable, fixedNow))

		_, err := f.svc.PriceQuote(ctx, "E1", []string{"A1", "Z9"})
		assert.ErrorIs(t, err, apperrors.ErrSeatNotFound)
		seatID, _ := apperrors.SeatIDOf(err)
		assert.Equal(t, "Z9", seatID)
	})
}

// expectFullBatch 一整批過期 hold，只有第一筆真正回收，其餘已被配位
func (f *inventoryFixture) expectFullBatch() {
	full := make([]*model.SeatHold, 0, 500)
	for i := 0; i < 500; i++ {
		full = append(full, heldBy(fmt.Sprintf("h%d", i), "order-1", fmt.Sprintf("S%d", i)))
	}
	f.pool.ExpectBegin()
	f.pool.ExpectQuery(expiredHoldsSQL).WithArgs(fixedNow, 500).WillReturnRows(holdRows(full...))
	for i, h := range full {
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", h.SeatID).WillReturnRows(seatRows(h.SeatID, model.SeatStatusHeld, 100))
		if i == 0 {
			f.pool.ExpectExec(markExpiredSQL).WithArgs(h.HoldID, fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			f.pool.ExpectExec(releaseSeatSQL).WithArgs(pgxmock.AnyArg(), "E1", h.SeatID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			continue
		}
		f.pool.ExpectExec(markExpiredSQL).WithArgs(h.HoldID, fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	}
	f.pool.ExpectCommit()
}

func TestInventoryService_ExpireHolds(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - skips holds allocated meanwhile", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(expiredHoldsSQL).WithArgs(fixedNow, 500).
			WillReturnRows(holdRows(heldBy("h1", "order-1", "A1"), heldBy("h2", "order-2", "A2")))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnRows(seatRows("A1", model.SeatStatusHeld, 100))
		f.pool.ExpectExec(markExpiredSQL).WithArgs("h1", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(releaseSeatSQL).WithArgs(pgxmock.AnyArg(), "E1", "A1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A2").WillReturnRows(seatRows("A2", model.SeatStatusAllocated, 100))
		f.pool.ExpectExec(markExpiredSQL).WithArgs("h2", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		f.pool.ExpectCommit()

		expired, err := f.svc.ExpireHolds(ctx, fixedNow)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, model.ExpiredHold{HoldID: "h1", OrderID: "order-1", EventID: "E1", SeatID: "A1", SeatReleased: true}, expired[0])
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - whole batch rolls back", func(t *testing.T) {
		f := newInventoryFixture(t)
		dbErr := errors.New("connection reset")
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(expiredHoldsSQL).WithArgs(fixedNow, 500).
			WillReturnRows(holdRows(heldBy("h1", "order-1", "A1")))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "A1").WillReturnError(dbErr)
		f.pool.ExpectRollback()

		_, err := f.svc.ExpireHolds(ctx, fixedNow)
		assert.ErrorIs(t, err, dbErr)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Success - keeps sweeping while batches are full", func(t *testing.T) {
		f := newInventoryFixture(t)
		f.expectFullBatch()
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(expiredHoldsSQL).WithArgs(fixedNow, 500).
			WillReturnRows(holdRows(heldBy("late", "order-2", "B1")))
		f.pool.ExpectQuery(lockSeatSQL).WithArgs("E1", "B1").WillReturnRows(seatRows("B1", model.SeatStatusHeld, 100))
		f.pool.ExpectExec(markExpiredSQL).WithArgs("late", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectExec(releaseSeatSQL).WithArgs(pgxmock.AnyArg(), "E1", "B1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		f.pool.ExpectCommit()

		expired, err := f.svc.ExpireHolds(ctx, fixedNow)
		require.NoError(t, err)
		require.Len(t, expired, 2)
		assert.Equal(t, "h0", expired[0].HoldID)
		assert.Equal(t, "late", expired[1].HoldID)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("Failed - later batch rolls back, committed holds returned", func(t *testing.T) {
		f := newInventoryFixture(t)
		dbErr := errors.New("deadlock detected")
		f.expectFullBatch()
		f.pool.ExpectBegin()
		f.pool.ExpectQuery(expiredHoldsSQL).WithArgs(fixedNow, 500).WillReturnError(dbErr)
		f.pool.ExpectRollback()

		expired, err := f.svc.ExpireHolds(ctx, fixedNow)
		assert.ErrorIs(t, err, dbErr)
		require.Len(t, expired, 1)
		assert.Equal(t, "h0", expired[0].HoldID)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})
}
