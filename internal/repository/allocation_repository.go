package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ticket-fulfillment/internal/model"

	"github.com/jackc/pgx/v5"
)

// AllocationRepository 配位快照只新增
type AllocationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, allocation *model.SeatAllocation) error
}

type AllocationRepositoryImpl struct{}

func NewAllocationRepository() AllocationRepository {
	return &AllocationRepositoryImpl{}
}

func (r *AllocationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, allocation *model.SeatAllocation) error {
	seats, err := json.Marshal(allocation.Seats)
	if err != nil {
		return fmt.Errorf("marshal allocation seats: %w", err)
	}

	query := `
		INSERT INTO seat_allocations (allocation_id, order_id, event_id, seats, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = tx.Exec(ctx, query,
		allocation.AllocationID, allocation.OrderID, allocation.EventID, seats, allocation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}
