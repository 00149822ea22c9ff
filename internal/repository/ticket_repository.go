package repository

import (
	"context"
	"fmt"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/model"

	"github.com/jackc/pgx/v5"
)

type TicketRepository interface {
	FindByOrderID(ctx context.Context, orderID string) ([]*model.Ticket, error)

	// Transaction methods
	// CreateBatch 同一訂單同一座位只會有一張票
	CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error
}

type TicketRepositoryImpl struct {
	pool database.DBPool
}

func NewTicketRepository(pool database.DBPool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

func (r *TicketRepositoryImpl) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	query := `
		INSERT INTO tickets (ticket_id, order_id, event_id, seat, price, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id, seat) DO NOTHING
	`

	for _, ticket := range tickets {
		_, err := tx.Exec(ctx, query,
			ticket.TicketID, ticket.OrderID, ticket.EventID, ticket.Seat, ticket.Price, ticket.IssuedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create ticket for seat %s: %w", ticket.Seat, err)
		}
	}

	return nil
}

func (r *TicketRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) ([]*model.Ticket, error) {
	query := `
		SELECT ticket_id, order_id, event_id, seat, price::float8, issued_at
		FROM tickets
		WHERE order_id = $1
		ORDER BY issued_at, seat
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*model.Ticket{}

	for rows.Next() {
		var ticket model.Ticket
		err := rows.Scan(
			&ticket.TicketID,
			&ticket.OrderID,
			&ticket.EventID,
			&ticket.Seat,
			&ticket.Price,
			&ticket.IssuedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}
