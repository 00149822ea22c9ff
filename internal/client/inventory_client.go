package client

import (
	"context"
	"net/http"

	"ticket-fulfillment/internal/model"
	apperrors "ticket-fulfillment/pkg/app_errors"
)

// InventoryClient 呼叫座位庫存服務
type InventoryClient interface {
	Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error)
	Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error)
	Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error)
	SeatPrices(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error)
}

type InventoryClientImpl struct {
	client *Client
}

func NewInventoryClient(client *Client) InventoryClient {
	return &InventoryClientImpl{client: client}
}

func (c *InventoryClientImpl) Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error) {
	var out model.ReserveResponse
	err := c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/reserve",
		Header: idempotencyHeader(idempotencyKey),
		Body:   req,
		Out:    &out,
		Errors: map[int]error{
			http.StatusNotFound: apperrors.ErrSeatNotFound,
			http.StatusConflict: apperrors.ErrSeatUnavailable,
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *InventoryClientImpl) Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error) {
	var out model.AllocateResponse
	err := c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/allocate",
		Body:   req,
		Out:    &out,
		Errors: map[int]error{
			http.StatusNotFound: apperrors.ErrSeatNotFound,
			http.StatusConflict: apperrors.ErrHoldConflict,
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *InventoryClientImpl) Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	var out model.ReleaseResponse
	err := c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/release",
		Body:   req,
		Out:    &out,
		Errors: map[int]error{
			http.StatusBadRequest: apperrors.ErrValidation,
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *InventoryClientImpl) SeatPrices(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error) {
	var out model.SeatPricesResponse
	err := c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/seat-prices",
		Body:   model.SeatPricesRequest{EventID: eventID, Seats: seats},
		Out:    &out,
		Errors: map[int]error{
			http.StatusNotFound: apperrors.ErrSeatNotFound,
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
