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

type SeatRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]*model.Seat, error)
	// FindBySeatIDs 回傳 seatId → seat，缺的座位不會出現在 map 中
	FindBySeatIDs(ctx context.Context, eventID string, seatIDs []string) (map[string]*model.Seat, error)

	// Transaction methods
	LockSeat(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (*model.Seat, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, eventID string, seatID string, status model.SeatStatus) error
	// ReleaseIfHeld 只有座位仍是 HELD 且沒有其他 HELD hold 時才改回 AVAILABLE
	ReleaseIfHeld(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (bool, error)
}

type SeatRepositoryImpl struct {
	pool database.DBPool
}

func NewSeatRepository(pool database.DBPool) SeatRepository {
	return &SeatRepositoryImpl{
		pool: pool,
	}
}

const seatColumns = `event_id, seat_id, section, row, seat_number, price::float8, status, last_updated`

func scanSeat(row pgx.Row) (*model.Seat, error) {
	var seat model.Seat
	err := row.Scan(
		&seat.EventID,
		&seat.SeatID,
		&seat.Section,
		&seat.Row,
		&seat.Number,
		&seat.Price,
		&seat.Status,
		&seat.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func (r *SeatRepositoryImpl) ListByEvent(ctx context.Context, eventID string) ([]*model.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_availability WHERE event_id = $1 ORDER BY section, row, seat_number, seat_id`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	seats := []*model.Seat{}
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (r *SeatRepositoryImpl) FindBySeatIDs(ctx context.Context, eventID string, seatIDs []string) (map[string]*model.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_availability WHERE event_id = $1 AND seat_id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, eventID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	defer rows.Close()

	seats := make(map[string]*model.Seat, len(seatIDs))
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats[seat.SeatID] = seat
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (r *SeatRepositoryImpl) LockSeat(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (*model.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_availability WHERE event_id = $1 AND seat_id = $2 FOR UPDATE`

	seat, err := scanSeat(tx.QueryRow(ctx, query, eventID, seatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrSeatNotFound)
		}
		return nil, fmt.Errorf("failed to lock seat %s: %w", seatID, err)
	}

	return seat, nil
}

func (r *SeatRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, eventID string, seatID string, status model.SeatStatus) error {
	query := `
		UPDATE seat_availability
		SET status = $1, last_updated = $2
		WHERE event_id = $3 AND seat_id = $4
	`

	result, err := tx.Exec(ctx, query, status, time.Now().UTC(), eventID, seatID)
	if err != nil {
		return fmt.Errorf("failed to update seat %s: %w", seatID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewSeatError(seatID, apperrors.ErrSeatNotFound)
	}
	return nil
}

func (r *SeatRepositoryImpl) ReleaseIfHeld(ctx context.Context, tx pgx.Tx, eventID string, seatID string) (bool, error) {
	query := `
		UPDATE seat_availability s
		SET status = 'AVAILABLE', last_updated = $1
		WHERE s.event_id = $2 AND s.seat_id = $3 AND s.status = 'HELD'
		  AND NOT EXISTS (
			SELECT 1 FROM seat_holds h
			WHERE h.event_id = s.event_id AND h.seat_id = s.seat_id AND h.status = 'HELD'
		  )
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), eventID, seatID)
	if err != nil {
		return false, fmt.Errorf("failed to release seat %s: %w", seatID, err)
	}
	return result.RowsAffected() > 0, nil
}
