package repository

import (
	"context"
	"errors"
	"fmt"
	"ticket-fulfillment/internal/database"
	"time"

	"github.com/jackc/pgx/v5"
)

// OrderIdempotencyRepository idempotency key → orderId，有 TTL
type OrderIdempotencyRepository interface {
	// Find 找不到或已過期時回傳空字串
	Find(ctx context.Context, key string, now time.Time) (string, error)
	Save(ctx context.Context, key string, orderID string, now time.Time, ttl time.Duration) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type OrderIdempotencyRepositoryImpl struct {
	pool database.DBPool
}

func NewOrderIdempotencyRepository(pool database.DBPool) OrderIdempotencyRepository {
	return &OrderIdempotencyRepositoryImpl{
		pool: pool,
	}
}

func (r *OrderIdempotencyRepositoryImpl) Find(ctx context.Context, key string, now time.Time) (string, error) {
	query := `SELECT order_id, expires_at FROM order_idempotency_keys WHERE key = $1`

	var (
		orderID   string
		expiresAt time.Time
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&orderID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find idempotency key: %w", err)
	}

	if !expiresAt.After(now) {
		// 過期的紀錄順手刪掉
		if _, err := r.pool.Exec(ctx, `DELETE FROM order_idempotency_keys WHERE key = $1 AND expires_at <= $2`, key, now); err != nil {
			return "", fmt.Errorf("failed to delete expired idempotency key: %w", err)
		}
		return "", nil
	}

	return orderID, nil
}

func (r *OrderIdempotencyRepositoryImpl) Save(ctx context.Context, key string, orderID string, now time.Time, ttl time.Duration) error {
	query := `
		INSERT INTO order_idempotency_keys (key, order_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, key, orderID, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

func (r *OrderIdempotencyRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM order_idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}
