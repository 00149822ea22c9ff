package repository

import (
	"context"
	"errors"
	"fmt"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/model"
	apperrors "ticket-fulfillment/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier 同時涵蓋連接池與交易
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	// Update 以 version 做 compare-and-swap，版本不符回傳 ErrVersionConflict
	Update(ctx context.Context, order *model.Order) (*model.Order, error)

	// Transaction methods
	UpdateTx(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error)
}

type OrderRepositoryImpl struct {
	pool database.DBPool
}

func NewOrderRepository(pool database.DBPool) OrderRepository {
	return &OrderRepositoryImpl{
		pool: pool,
	}
}

const orderColumns = `order_id, user_id, event_id, seats, seat_prices, hold_ids,
		total::float8, tax::float8, status, payment_status, payment_method, payment_id,
		version, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.OrderID,
		&order.UserID,
		&order.EventID,
		&order.Seats,
		&order.SeatPrices,
		&order.HoldIDs,
		&order.Total,
		&order.Tax,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.PaymentID,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	query := `
		INSERT INTO orders (
			order_id, user_id, event_id, seats, seat_prices, hold_ids, total, tax,
			status, payment_status, payment_method, payment_id, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $13)
		RETURNING ` + orderColumns

	if order.SeatPrices == nil {
		order.SeatPrices = []float64{}
	}
	if order.HoldIDs == nil {
		order.HoldIDs = []string{}
	}

	created, err := scanOrder(r.pool.QueryRow(ctx, query,
		order.OrderID, order.UserID, order.EventID, order.Seats, order.SeatPrices, order.HoldIDs,
		order.Total, order.Tax, order.Status, order.PaymentStatus, order.PaymentMethod, order.PaymentID,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return created, nil
}

func (r *OrderRepositoryImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return order, nil
}

func (r *OrderRepositoryImpl) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	return r.update(ctx, r.pool, order)
}

func (r *OrderRepositoryImpl) UpdateTx(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	return r.update(ctx, tx, order)
}

func (r *OrderRepositoryImpl) update(ctx context.Context, q querier, order *model.Order) (*model.Order, error) {
	query := `
		UPDATE orders
		SET seat_prices = $1, hold_ids = $2, total = $3, tax = $4, status = $5,
		    payment_status = $6, payment_id = $7, version = version + 1, updated_at = $8
		WHERE order_id = $9 AND version = $10
		RETURNING ` + orderColumns

	if order.SeatPrices == nil {
		order.SeatPrices = []float64{}
	}
	if order.HoldIDs == nil {
		order.HoldIDs = []string{}
	}

	updated, err := scanOrder(q.QueryRow(ctx, query,
		order.SeatPrices, order.HoldIDs, order.Total, order.Tax, order.Status,
		order.PaymentStatus, order.PaymentID, time.Now().UTC(),
		order.OrderID, order.Version,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	// 沒有更新到任何列：訂單不存在或版本已被別人推進
	var current int
	err = q.QueryRow(ctx, `SELECT version FROM orders WHERE order_id = $1`, order.OrderID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to check order version: %w", err)
	}
	return nil, apperrors.ErrVersionConflict
}
