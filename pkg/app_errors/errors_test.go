package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "ticket-fulfillment/pkg/app_errors"

	"github.com/stretchr/testify/assert"
)

func TestSeatError(t *testing.T) {
	err := fmt.Errorf("reserve: %w", apperrors.NewSeatError("A1", apperrors.ErrSeatUnavailable))

	assert.True(t, errors.Is(err, apperrors.ErrSeatUnavailable))
	seatID, ok := apperrors.SeatIDOf(err)
	assert.True(t, ok)
	assert.Equal(t, "A1", seatID)
	assert.Contains(t, err.Error(), "seat unavailable: A1")
}

func TestOrderError(t *testing.T) {
	inner := apperrors.NewSeatError("B2", apperrors.ErrHoldConflict)
	err := apperrors.NewOrderError("order-1", fmt.Errorf("%w: %w", apperrors.ErrAllocationFailed, inner))

	assert.True(t, errors.Is(err, apperrors.ErrAllocationFailed))
	assert.True(t, errors.Is(err, apperrors.ErrHoldConflict))

	orderID, ok := apperrors.OrderIDOf(err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", orderID)

	seatID, ok := apperrors.SeatIDOf(err)
	assert.True(t, ok)
	assert.Equal(t, "B2", seatID)
}

func TestDetailLookupMissing(t *testing.T) {
	_, ok := apperrors.SeatIDOf(apperrors.ErrSeatNotFound)
	assert.False(t, ok)
	_, ok = apperrors.OrderIDOf(nil)
	assert.False(t, ok)
}
