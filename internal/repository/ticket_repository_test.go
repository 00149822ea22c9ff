package repository_test

import (
	"context"
	"testing"

	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/repository"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository_CreateBatch(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := repository.NewTicketRepository(mock)

	tickets := []*model.Ticket{
		{TicketID: "t-1", OrderID: "order-1", EventID: "E1", Seat: "A1", Price: 100, IssuedAt: fixedNow},
		{TicketID: "t-2", OrderID: "order-1", EventID: "E1", Seat: "A2", Price: 100, IssuedAt: fixedNow},
	}

	mock.ExpectBegin()
	for _, ticket := range tickets {
		mock.ExpectExec(`(?s)INSERT INTO tickets.*ON CONFLICT \(order_id, seat\) DO NOTHING`).
			WithArgs(ticket.TicketID, ticket.OrderID, ticket.EventID, ticket.Seat, ticket.Price, ticket.IssuedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateBatch(ctx, tx, tickets))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_FindByOrderID(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := repository.NewTicketRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .*FROM tickets`).
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"ticket_id", "order_id", "event_id", "seat", "price", "issued_at"}).
			AddRow("t-1", "order-1", "E1", "A1", 100.0, fixedNow).
			AddRow("t-2", "order-1", "E1", "A2", 250.0, fixedNow))

	tickets, err := repo.FindByOrderID(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "A2", tickets[1].Seat)
	assert.Equal(t, 250.0, tickets[1].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_FindByOrderID_Empty(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := repository.NewTicketRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .*FROM tickets`).
		WithArgs("order-2").
		WillReturnRows(pgxmock.NewRows([]string{"ticket_id", "order_id", "event_id", "seat", "price", "issued_at"}))

	tickets, err := repo.FindByOrderID(ctx, "order-2")
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}
