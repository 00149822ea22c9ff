package repository

import (
	"context"
	"errors"
	"fmt"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/model"

	"github.com/jackc/pgx/v5"
)

type InventoryIdempotencyRepository interface {
	// Find 找不到時回傳 nil, nil
	Find(ctx context.Context, key string) (*model.InventoryIdempotencyRecord, error)
	// Save 先寫入者勝出，回傳實際存下的紀錄
	Save(ctx context.Context, record *model.InventoryIdempotencyRecord) (*model.InventoryIdempotencyRecord, error)
}

type InventoryIdempotencyRepositoryImpl struct {
	pool database.DBPool
}

func NewInventoryIdempotencyRepository(pool database.DBPool) InventoryIdempotencyRepository {
	return &InventoryIdempotencyRepositoryImpl{
		pool: pool,
	}
}

func (r *InventoryIdempotencyRepositoryImpl) Find(ctx context.Context, key string) (*model.InventoryIdempotencyRecord, error) {
	query := `
		SELECT idempotency_key, response_code, response_body, created_at
		FROM inventory_idempotency_keys
		WHERE idempotency_key = $1
	`

	var record model.InventoryIdempotencyRecord
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&record.Key,
		&record.ResponseCode,
		&record.ResponseBody,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find idempotency record: %w", err)
	}

	return &record, nil
}

func (r *InventoryIdempotencyRepositoryImpl) Save(ctx context.Context, record *model.InventoryIdempotencyRecord) (*model.InventoryIdempotencyRecord, error) {
	query := `
		INSERT INTO inventory_idempotency_keys (idempotency_key, response_code, response_body, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, record.Key, record.ResponseCode, record.ResponseBody, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save idempotency record: %w", err)
	}
	if result.RowsAffected() > 0 {
		return record, nil
	}

	existing, err := r.Find(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("idempotency record %s vanished after conflict", record.Key)
	}
	return existing, nil
}
