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
)

// HoldRepository seat_holds 只改狀態，不刪除
type HoldRepository interface {
	FindByID(ctx context.Context, holdID string) (*model.SeatHold, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, hold *model.SeatHold) error
	FindByIDTx(ctx context.Context, tx pgx.Tx, holdID string) (*model.SeatHold, error)
	FindActiveBySeat(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (*model.SeatHold, error)
	// FindActiveBySeats orderID 為空時不限訂單
	FindActiveBySeats(ctx context.Context, tx pgx.Tx, eventID string, seatIDs []string, orderID string) ([]*model.SeatHold, error)
	FindExpired(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*model.SeatHold, error)
	MarkAllocated(ctx context.Context, tx pgx.Tx, holdID string) (bool, error)
	MarkReleased(ctx context.Context, tx pgx.Tx, holdID string) (bool, error)
	// MarkExpired 在鎖下重新確認仍是 HELD 且已過期
	MarkExpired(ctx context.Context, tx pgx.Tx, holdID string, now time.Time) (bool, error)
}

type HoldRepositoryImpl struct {
	pool database.DBPool
}

func NewHoldRepository(pool database.DBPool) HoldRepository {
	return &HoldRepositoryImpl{
		pool: pool,
	}
}

const holdColumns = `hold_id, idempotency_key, order_id, event_id, seat_id, user_id, created_at, expires_at, status`

func scanHold(row pgx.Row) (*model.SeatHold, error) {
	var hold model.SeatHold
	err := row.Scan(
		&hold.HoldID,
		&hold.IdempotencyKey,
		&hold.OrderID,
		&hold.EventID,
		&hold.SeatID,
		&hold.UserID,
		&hold.CreatedAt,
		&hold.ExpiresAt,
		&hold.Status,
	)
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func collectHolds(rows pgx.Rows) ([]*model.SeatHold, error) {
	defer rows.Close()

	holds := []*model.SeatHold{}
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}

func (r *HoldRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, hold *model.SeatHold) error {
	query := `
		INSERT INTO seat_holds (` + holdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		hold.HoldID, hold.IdempotencyKey, hold.OrderID, hold.EventID, hold.SeatID,
		hold.UserID, hold.CreatedAt, hold.ExpiresAt, hold.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create hold for seat %s: %w", hold.SeatID, err)
	}
	return nil
}

func (r *HoldRepositoryImpl) FindByID(ctx context.Context, holdID string) (*model.SeatHold, error) {
	return r.findByID(ctx, r.pool, holdID)
}

func (r *HoldRepositoryImpl) FindByIDTx(ctx context.Context, tx pgx.Tx, holdID string) (*model.SeatHold, error) {
	return r.findByID(ctx, tx, holdID)
}

func (r *HoldRepositoryImpl) findByID(ctx context.Context, q querier, holdID string) (*model.SeatHold, error) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE hold_id = $1`

	hold, err := scanHold(q.QueryRow(ctx, query, holdID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to find hold: %w", err)
	}
	return hold, nil
}

func (r *HoldRepositoryImpl) FindActiveBySeat(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (*model.SeatHold, error) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE event_id = $1 AND seat_id = $2 AND status = 'HELD'`

	hold, err := scanHold(tx.QueryRow(ctx, query, eventID, seatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to find active hold: %w", err)
	}
	return hold, nil
}

func (r *HoldRepositoryImpl) FindActiveBySeats(ctx context.Context, tx pgx.Tx, eventID string, seatIDs []string, orderID string) ([]*model.SeatHold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM seat_holds
		WHERE event_id = $1 AND seat_id = ANY($2) AND status = 'HELD'
		  AND ($3 = '' OR order_id = $3)
		ORDER BY seat_id
	`

	rows, err := tx.Query(ctx, query, eventID, seatIDs, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active holds: %w", err)
	}
	return collectHolds(rows)
}

func (r *HoldRepositoryImpl) FindExpired(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*model.SeatHold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM seat_holds
		WHERE status = 'HELD' AND expires_at <= $1
		ORDER BY event_id, seat_id
		LIMIT $2
	`

	rows, err := tx.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	return collectHolds(rows)
}

func (r *HoldRepositoryImpl) MarkAllocated(ctx context.Context, tx pgx.Tx, holdID string) (bool, error) {
	return r.transition(ctx, tx, `UPDATE seat_holds SET status = 'ALLOCATED' WHERE hold_id = $1 AND status = 'HELD'`, holdID)
}

func (r *HoldRepositoryImpl) MarkReleased(ctx context.Context, tx pgx.Tx, holdID string) (bool, error) {
	return r.transition(ctx, tx, `UPDATE seat_holds SET status = 'RELEASED' WHERE hold_id = $1 AND status = 'HELD'`, holdID)
}

func (r *HoldRepositoryImpl) MarkExpired(ctx context.Context, tx pgx.Tx, holdID string, now time.Time) (bool, error) {
	return r.transition(ctx, tx, `UPDATE seat_holds SET status = 'RELEASED' WHERE hold_id = $1 AND status = 'HELD' AND expires_at <= $2`, holdID, now)
}

func (r *HoldRepositoryImpl) transition(ctx context.Context, tx pgx.Tx, query string, args ...any) (bool, error) {
	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update hold: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
