package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/repository"
	apperrors "ticket-fulfillment/pkg/app_errors"
	"ticket-fulfillment/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// 每次 sweep 最多處理的 hold 數
const expireBatchSize = 500

type InventoryService interface {
	// Reserve 全有或全無：任何一個座位失敗整筆回滾
	Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error)
	Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error)
	// Release 找不到的 hold 或座位直接略過，不回錯
	Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error)
	PriceQuote(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error)
	ListSeats(ctx context.Context, eventID string) ([]*model.Seat, error)
	GetHold(ctx context.Context, holdID string) (*model.SeatHold, error)
	ExpireHolds(ctx context.Context, now time.Time) ([]model.ExpiredHold, error)
}

type InventoryServiceImpl struct {
	pool                 database.DBPool
	seatRepository       repository.SeatRepository
	holdRepository       repository.HoldRepository
	allocationRepository repository.AllocationRepository
	catalog              client.DirectoryClient
	metrics              *metrics.InventoryMetrics
	holdDuration         time.Duration
}

// NewInventoryService catalog 為 nil 時不檢查活動是否開賣
func NewInventoryService(
	pool database.DBPool,
	seatRepository repository.SeatRepository,
	holdRepository repository.HoldRepository,
	allocationRepository repository.AllocationRepository,
	catalog client.DirectoryClient,
	metrics *metrics.InventoryMetrics,
	holdDuration time.Duration,
) InventoryService {
	if holdDuration <= 0 {
		holdDuration = model.DefaultHoldDuration
	}
	return &InventoryServiceImpl{
		pool:                 pool,
		seatRepository:       seatRepository,
		holdRepository:       holdRepository,
		allocationRepository: allocationRepository,
		catalog:              catalog,
		metrics:              metrics,
		holdDuration:         holdDuration,
	}
}

func (s *InventoryServiceImpl) Reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error) {
	log := logger.WithComponent("inventory").With(
		zap.String("operation", "reserve"),
		zap.String("order_id", req.OrderID),
		zap.String("event_id", req.EventID),
	)

	resp, err := s.reserve(ctx, req, idempotencyKey)
	if err != nil {
		s.metrics.ReservationsFailedTotal.WithLabelValues(reserveFailureReason(err)).Inc()
		log.Info("reserve rejected", zap.Strings("seats", req.Seats), zap.Error(err))
		return nil, err
	}

	s.metrics.ReservationsTotal.Inc()
	log.Info("seats reserved", zap.Strings("hold_ids", resp.HoldIDs), zap.Time("expires_at", resp.ExpiresAt))
	return resp, nil
}

func (s *InventoryServiceImpl) reserve(ctx context.Context, req model.ReserveRequest, idempotencyKey string) (*model.ReserveResponse, error) {
	if req.OrderID == "" || req.EventID == "" || len(req.Seats) == 0 {
		return nil, fmt.Errorf("%w: orderId, eventId and seats are required", apperrors.ErrValidation)
	}

	if err := s.checkOnSale(ctx, req.EventID); err != nil {
		return nil, err
	}

	duration := s.holdDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}
	now := time.Now().UTC()
	expiresAt := now.Add(duration)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	resp := &model.ReserveResponse{
		HoldIDs:   make([]string, 0, len(req.Seats)),
		Reserved:  make([]model.ReservedSeat, 0, len(req.Seats)),
		ExpiresAt: expiresAt,
	}

	// 依呼叫者給的順序逐一上鎖
	for _, seatID := range req.Seats {
		seat, err := s.seatRepository.LockSeat(ctx, tx, req.EventID, seatID)
		if err != nil {
			return nil, err
		}
		if seat.Status != model.SeatStatusAvailable {
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrSeatUnavailable)
		}

		if err := s.seatRepository.UpdateStatus(ctx, tx, req.EventID, seatID, model.SeatStatusHeld); err != nil {
			return nil, err
		}

		hold := &model.SeatHold{
			HoldID:         uuid.NewString(),
			IdempotencyKey: idempotencyKey,
			OrderID:        req.OrderID,
			EventID:        req.EventID,
			SeatID:         seatID,
			UserID:         req.UserID,
			CreatedAt:      now,
			ExpiresAt:      expiresAt,
			Status:         model.HoldStatusHeld,
		}
		if err := s.holdRepository.Create(ctx, tx, hold); err != nil {
			return nil, err
		}

		resp.HoldIDs = append(resp.HoldIDs, hold.HoldID)
		resp.Reserved = append(resp.Reserved, model.ReservedSeat{HoldID: hold.HoldID, SeatID: seatID, Price: seat.Price})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return resp, nil
}

func (s *InventoryServiceImpl) checkOnSale(ctx context.Context, eventID string) error {
	if s.catalog == nil {
		return nil
	}
	status, err := s.catalog.EventStatus(ctx, eventID)
	if err != nil {
		return err
	}
	if status != model.EventStatusOnSale {
		return fmt.Errorf("%w: event %s is %s", apperrors.ErrEventNotOnSale, eventID, status)
	}
	return nil
}

func reserveFailureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, apperrors.ErrSeatNotFound):
		return "seat_not_found"
	case errors.Is(err, apperrors.ErrEventNotOnSale), errors.Is(err, apperrors.ErrEventNotFound):
		return "not_on_sale"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	}
	return "error"
}

func (s *InventoryServiceImpl) Allocate(ctx context.Context, req model.AllocateRequest) (*model.AllocateResponse, error) {
	log := logger.WithComponent("inventory").With(
		zap.String("operation", "allocate"),
		zap.String("order_id", req.OrderID),
		zap.String("event_id", req.EventID),
	)

	if req.OrderID == "" || req.EventID == "" || len(req.Seats) == 0 {
		return nil, fmt.Errorf("%w: orderId, eventId and seats are required", apperrors.ErrValidation)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	allocated := make([]model.AllocatedSeat, 0, len(req.Seats))
	for _, seatID := range req.Seats {
		seat, err := s.seatRepository.LockSeat(ctx, tx, req.EventID, seatID)
		if err != nil {
			return nil, err
		}
		if seat.Status != model.SeatStatusHeld {
			log.Info("seat not held", zap.String("seat_id", seatID), zap.String("status", string(seat.Status)))
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrHoldConflict)
		}

		hold, err := s.holdRepository.FindActiveBySeat(ctx, tx, req.EventID, seatID)
		if err != nil {
			if errors.Is(err, apperrors.ErrHoldNotFound) {
				return nil, apperrors.NewSeatError(seatID, apperrors.ErrHoldConflict)
			}
			return nil, err
		}
		if hold.OrderID != req.OrderID || (len(req.HoldIDs) > 0 && !slices.Contains(req.HoldIDs, hold.HoldID)) {
			log.Info("hold owned by another order", zap.String("seat_id", seatID), zap.String("hold_id", hold.HoldID))
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrHoldConflict)
		}

		ok, err := s.holdRepository.MarkAllocated(ctx, tx, hold.HoldID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrHoldConflict)
		}
		if err := s.seatRepository.UpdateStatus(ctx, tx, req.EventID, seatID, model.SeatStatusAllocated); err != nil {
			return nil, err
		}

		allocated = append(allocated, model.AllocatedSeat{
			SeatID:  seat.SeatID,
			Section: seat.Section,
			Row:     seat.Row,
			Number:  seat.Number,
			Price:   seat.Price,
		})
	}

	allocation := &model.SeatAllocation{
		AllocationID: uuid.NewString(),
		OrderID:      req.OrderID,
		EventID:      req.EventID,
		Seats:        allocated,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.allocationRepository.Create(ctx, tx, allocation); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}

	s.metrics.AllocationsTotal.Inc()
	log.Info("seats allocated", zap.String("allocation_id", allocation.AllocationID), zap.Int("seats", len(allocated)))
	return &model.AllocateResponse{AllocationID: allocation.AllocationID, Allocated: allocated}, nil
}

func (s *InventoryServiceImpl) Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	log := logger.WithComponent("inventory").With(
		zap.String("operation", "release"),
		zap.String("order_id", req.OrderID),
	)

	if len(req.HoldIDs) == 0 && len(req.Seats) == 0 {
		return nil, fmt.Errorf("%w: holdIds or seats required", apperrors.ErrValidation)
	}
	if len(req.Seats) > 0 && req.EventID == "" {
		return nil, fmt.Errorf("%w: eventId required when releasing by seat", apperrors.ErrValidation)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	released := 0
	for _, holdID := range req.HoldIDs {
		hold, err := s.holdRepository.FindByIDTx(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, apperrors.ErrHoldNotFound) {
				continue
			}
			return nil, err
		}
		if hold.Status != model.HoldStatusHeld || (req.OrderID != "" && hold.OrderID != req.OrderID) {
			continue
		}

		ok, err := s.releaseHold(ctx, tx, hold)
		if err != nil {
			return nil, err
		}
		if ok {
			released++
		}
	}

	for _, seatID := range req.Seats {
		if _, err := s.seatRepository.LockSeat(ctx, tx, req.EventID, seatID); err != nil {
			if errors.Is(err, apperrors.ErrSeatNotFound) {
				continue
			}
			return nil, err
		}

		holds, err := s.holdRepository.FindActiveBySeats(ctx, tx, req.EventID, []string{seatID}, req.OrderID)
		if err != nil {
			return nil, err
		}
		for _, hold := range holds {
			ok, err := s.holdRepository.MarkReleased(ctx, tx, hold.HoldID)
			if err != nil {
				return nil, err
			}
			if ok {
				released++
			}
		}
		if _, err := s.seatRepository.ReleaseIfHeld(ctx, tx, req.EventID, seatID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}

	s.metrics.ReleasesTotal.Add(float64(released))
	log.Info("holds released", zap.Int("released", released))
	return &model.ReleaseResponse{Released: released}, nil
}

// releaseHold 先鎖座位再改 hold，順序與 sweeper 相同
func (s *InventoryServiceImpl) releaseHold(ctx context.Context, tx pgx.Tx, hold *model.SeatHold) (bool, error) {
	if _, err := s.seatRepository.LockSeat(ctx, tx, hold.EventID, hold.SeatID); err != nil {
		return false, err
	}
	ok, err := s.holdRepository.MarkReleased(ctx, tx, hold.HoldID)
	if err != nil || !ok {
		return false, err
	}
	if _, err := s.seatRepository.ReleaseIfHeld(ctx, tx, hold.EventID, hold.SeatID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *InventoryServiceImpl) PriceQuote(ctx context.Context, eventID string, seats []string) (*model.SeatPricesResponse, error) {
	if eventID == "" || len(seats) == 0 {
		return nil, fmt.Errorf("%w: eventId and seats are required", apperrors.ErrValidation)
	}

	found, err := s.seatRepository.FindBySeatIDs(ctx, eventID, seats)
	if err != nil {
		return nil, err
	}

	prices := make([]model.SeatPrice, 0, len(seats))
	for _, seatID := range seats {
		seat, ok := found[seatID]
		if !ok {
			return nil, apperrors.NewSeatError(seatID, apperrors.ErrSeatNotFound)
		}
		prices = append(prices, model.SeatPrice{SeatID: seatID, Price: seat.Price})
	}
	return &model.SeatPricesResponse{Prices: prices}, nil
}

func (s *InventoryServiceImpl) ListSeats(ctx context.Context, eventID string) ([]*model.Seat, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: eventId is required", apperrors.ErrValidation)
	}
	return s.seatRepository.ListByEvent(ctx, eventID)
}

func (s *InventoryServiceImpl) GetHold(ctx context.Context, holdID string) (*model.SeatHold, error) {
	return s.holdRepository.FindByID(ctx, holdID)
}

// ExpireHolds 逐批回收直到沒有過期 hold；每批一個交易，失敗只回滾該批，
// 已提交的批次照常回傳
func (s *InventoryServiceImpl) ExpireHolds(ctx context.Context, now time.Time) ([]model.ExpiredHold, error) {
	expired := make([]model.ExpiredHold, 0)
	for {
		batch, scanned, err := s.expireBatch(ctx, now)
		if err != nil {
			return expired, err
		}
		expired = append(expired, batch...)
		if scanned < expireBatchSize {
			return expired, nil
		}
		if err := ctx.Err(); err != nil {
			return expired, err
		}
	}
}

func (s *InventoryServiceImpl) expireBatch(ctx context.Context, now time.Time) ([]model.ExpiredHold, int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	candidates, err := s.holdRepository.FindExpired(ctx, tx, now, expireBatchSize)
	if err != nil {
		return nil, 0, err
	}

	expired := make([]model.ExpiredHold, 0, len(candidates))
	for _, hold := range candidates {
		// 與 reserve/allocate 相同的鎖順序：座位 → hold
		if _, err := s.seatRepository.LockSeat(ctx, tx, hold.EventID, hold.SeatID); err != nil {
			return nil, 0, err
		}

		// 取得鎖之後重新確認，可能已被 allocate 或 release
		ok, err := s.holdRepository.MarkExpired(ctx, tx, hold.HoldID, now)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}

		seatReleased, err := s.seatRepository.ReleaseIfHeld(ctx, tx, hold.EventID, hold.SeatID)
		if err != nil {
			return nil, 0, err
		}
		expired = append(expired, model.ExpiredHold{
			HoldID:       hold.HoldID,
			OrderID:      hold.OrderID,
			EventID:      hold.EventID,
			SeatID:       hold.SeatID,
			SeatReleased: seatReleased,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit expiry sweep: %w", err)
	}
	return expired, len(candidates), nil
}
