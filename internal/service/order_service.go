package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/cache"
	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/events"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/repository"
	apperrors "ticket-fulfillment/pkg/app_errors"
	"ticket-fulfillment/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// 版本衝突時最多重讀幾次
const maxVersionRetries = 3

type OrderService interface {
	// CreateOrder 同步 saga：預留 → 定價 → 扣款 → 配位 → 出票
	CreateOrder(ctx context.Context, req model.CreateOrderRequest, idempotencyKey string) (*model.OrderWithTickets, error)
	GetOrder(ctx context.Context, orderID string) (*model.OrderWithTickets, error)
	CancelOrder(ctx context.Context, orderID string) (*model.Order, error)
	HandlePaymentCallback(ctx context.Context, callback model.PaymentCallback) error
	HandleReservationCallback(ctx context.Context, callback model.ReservationCallback) error
	PurgeIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)
}

// OrderServiceDeps 訂單 saga 的協作者
type OrderServiceDeps struct {
	Pool      database.DBPool
	Orders    repository.OrderRepository
	Tickets   repository.TicketRepository
	Ledger    repository.OrderIdempotencyRepository
	Inventory client.InventoryClient
	Payments  client.PaymentClient
	Directory client.DirectoryClient
	InFlight  cache.InFlightTracker
	Publisher events.Publisher
	Metrics   *metrics.OrderMetrics
	Saga      config.SagaConfig
}

type OrderServiceImpl struct {
	pool      database.DBPool
	orders    repository.OrderRepository
	tickets   repository.TicketRepository
	ledger    repository.OrderIdempotencyRepository
	inventory client.InventoryClient
	payments  client.PaymentClient
	directory client.DirectoryClient
	inflight  cache.InFlightTracker
	publisher events.Publisher
	metrics   *metrics.OrderMetrics
	saga      config.SagaConfig
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	saga := deps.Saga
	if saga.HoldDuration <= 0 {
		saga.HoldDuration = model.DefaultHoldDuration
	}
	if saga.IdempotencyTTL <= 0 {
		saga.IdempotencyTTL = time.Hour
	}
	if saga.InFlightTTL <= 0 {
		saga.InFlightTTL = saga.HoldDuration
	}

	return &OrderServiceImpl{
		pool:      deps.Pool,
		orders:    deps.Orders,
		tickets:   deps.Tickets,
		ledger:    deps.Ledger,
		inventory: deps.Inventory,
		payments:  deps.Payments,
		directory: deps.Directory,
		inflight:  deps.InFlight,
		publisher: publisher,
		metrics:   deps.Metrics,
		saga:      saga,
	}
}

func validateCreateOrder(req model.CreateOrderRequest) error {
	if req.UserID == "" || req.EventID == "" || len(req.Seats) == 0 {
		return fmt.Errorf("%w: userId, eventId and seats are required", apperrors.ErrValidation)
	}
	if !req.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: paymentMethod must be one of UPI, CARD, NETBANKING", apperrors.ErrValidation)
	}
	seen := make(map[string]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if seat == "" {
			return fmt.Errorf("%w: seat id must not be empty", apperrors.ErrValidation)
		}
		if _, dup := seen[seat]; dup {
			return apperrors.NewSeatError(seat, fmt.Errorf("%w: duplicate seat", apperrors.ErrValidation))
		}
		seen[seat] = struct{}{}
	}
	return nil
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req model.CreateOrderRequest, idempotencyKey string) (*model.OrderWithTickets, error) {
	if idempotencyKey == "" {
		return nil, apperrors.ErrIdempotencyKeyRequired
	}
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	log := logger.WithComponent("saga").With(
		zap.String("operation", "create_order"),
		zap.String("idempotency_key", idempotencyKey),
	)

	if replay, err := s.replay(ctx, idempotencyKey); err != nil || replay != nil {
		return replay, err
	}

	// saga 開始標記：同一個 key 的併發請求直接拒絕
	owner := uuid.NewString()
	release, err := s.acquire(ctx, "key:"+idempotencyKey, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	// 前一個請求可能剛好在取得標記前完成
	if replay, err := s.replay(ctx, idempotencyKey); err != nil || replay != nil {
		return replay, err
	}

	// 1. 使用者與活動必須存在
	if err := s.directory.UserExists(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := s.directory.EventExists(ctx, req.EventID); err != nil {
		return nil, err
	}

	// 2. 建立 CREATED 訂單
	order, err := s.orders.Create(ctx, &model.Order{
		OrderID:       uuid.NewString(),
		UserID:        req.UserID,
		EventID:       req.EventID,
		Seats:         req.Seats,
		Status:        model.OrderStatusCreated,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrdersCreatedTotal.Inc()
	log = log.With(zap.String("order_id", order.OrderID))

	releaseOrder, err := s.acquire(ctx, "order:"+order.OrderID, owner)
	if err != nil {
		return nil, err
	}
	defer releaseOrder()

	result, err := s.runSaga(ctx, log, order, idempotencyKey)
	if err != nil {
		return nil, apperrors.NewOrderError(order.OrderID, err)
	}

	// 8. 全部成功後才寫入 ledger
	if err := s.ledger.Save(ctx, idempotencyKey, order.OrderID, time.Now().UTC(), s.saga.IdempotencyTTL); err != nil {
		log.Error("failed to save idempotency key", zap.Error(err))
	}

	log.Info("order confirmed", zap.Float64("total", result.Order.Total), zap.Int("tickets", len(result.Tickets)))
	return result, nil
}

func (s *OrderServiceImpl) runSaga(ctx context.Context, log *zap.Logger, order *model.Order, idempotencyKey string) (*model.OrderWithTickets, error) {
	// 3. 預留座位
	reserved, err := s.inventory.Reserve(ctx, model.ReserveRequest{
		OrderID:         order.OrderID,
		EventID:         order.EventID,
		UserID:          order.UserID,
		Seats:           order.Seats,
		DurationSeconds: int(s.saga.HoldDuration / time.Second),
	}, idempotencyKey)
	if err != nil {
		log.Info("reserve failed", zap.Error(err))
		s.fail(ctx, log, order, EventReserveFailed)
		return nil, reserveError(err)
	}

	withHolds, err := s.updateOrder(ctx, order, func(current *model.Order) (*model.Order, error) {
		if current.Status != model.OrderStatusCreated {
			return nil, fmt.Errorf("%w: order is %s", apperrors.ErrInvalidTransition, current.Status)
		}
		next := current.Clone()
		next.HoldIDs = reserved.HoldIDs
		return next, nil
	})
	if err != nil {
		// 訂單已被其他流程取消，歸還剛拿到的座位
		order.HoldIDs = reserved.HoldIDs
		s.releaseSeats(ctx, log, order)
		return nil, err
	}
	order = withHolds

	// 4. 取得權威價格並計算稅金
	quote, err := s.inventory.SeatPrices(ctx, order.EventID, order.Seats)
	if err == nil && len(quote.Prices) != len(order.Seats) {
		err = fmt.Errorf("expected %d prices, got %d", len(order.Seats), len(quote.Prices))
	}
	if err != nil {
		log.Warn("pricing failed", zap.Error(err))
		s.fail(ctx, log, order, EventPricingFailed)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPricingFailed, err)
	}

	prices := quote.PriceList()
	_, tax, total := CalculateTotal(prices)
	priced, err := s.transition(ctx, order, EventPriced, func(next *model.Order) {
		next.SeatPrices = prices
		next.Tax = tax
		next.Total = total
	}, nil)
	if err != nil {
		s.releaseSeats(ctx, log, order)
		return nil, err
	}
	order = priced

	// 5. 扣款，沿用同一個 idempotency key
	charge, err := s.payments.Charge(ctx, model.ChargeRequest{
		OrderID: order.OrderID,
		Amount:  order.Total,
		Method:  order.PaymentMethod,
	}, idempotencyKey)
	if err != nil {
		log.Info("charge failed", zap.Error(err))
		s.fail(ctx, log, order, EventPaymentDeclined)
		if errors.Is(err, apperrors.ErrPaymentDeclined) || errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPaymentDeclined, err)
	}

	paid, err := s.recordPayment(ctx, order, charge.PaymentID)
	if err != nil {
		log.Warn("order changed while charging, refunding", zap.String("payment_id", charge.PaymentID), zap.Error(err))
		s.refund(ctx, log, charge.PaymentID)
		return nil, err
	}
	order = paid

	// 6. 配位
	if _, err := s.inventory.Allocate(ctx, model.AllocateRequest{
		OrderID: order.OrderID,
		EventID: order.EventID,
		Seats:   order.Seats,
		HoldIDs: order.HoldIDs,
	}); err != nil {
		log.Warn("allocation failed", zap.Error(err))
		s.fail(ctx, log, order, EventAllocationFailed)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrAllocationFailed, err)
	}

	// 7. 出票並確認訂單
	return s.confirm(ctx, order)
}

// reserveError 未分類的預留失敗一律視為座位衝突
func reserveError(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrSeatUnavailable),
		errors.Is(err, apperrors.ErrSeatNotFound),
		errors.Is(err, apperrors.ErrEventNotOnSale),
		errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrSeatConflict, err)
}

func (s *OrderServiceImpl) recordPayment(ctx context.Context, order *model.Order, paymentID string) (*model.Order, error) {
	return s.updateOrder(ctx, order, func(current *model.Order) (*model.Order, error) {
		if current.Status != model.OrderStatusPendingPayment {
			return nil, fmt.Errorf("%w: order is %s", apperrors.ErrInvalidTransition, current.Status)
		}
		next := current.Clone()
		next.PaymentID = paymentID
		return next, nil
	})
}

// confirm 票券與訂單狀態在同一個交易內寫入
func (s *OrderServiceImpl) confirm(ctx context.Context, order *model.Order) (*model.OrderWithTickets, error) {
	var tickets []*model.Ticket
	confirmed, err := s.transition(ctx, order, EventFulfilled, nil, func(ctx context.Context, next *model.Order) (*model.Order, error) {
		tickets = buildTickets(next)

		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return nil, err
		}
		defer tx.Rollback(ctx)

		if err := s.tickets.CreateBatch(ctx, tx, tickets); err != nil {
			return nil, err
		}
		updated, err := s.orders.UpdateTx(ctx, tx, next)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit confirmation: %w", err)
		}
		return updated, nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			// 已扣款且已配位，需人工對帳
			s.metrics.ConfirmFailuresTotal.Inc()
			logger.WithComponent("saga").Error("order confirmation failed after payment",
				zap.String("order_id", order.OrderID),
				zap.String("payment_id", order.PaymentID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return &model.OrderWithTickets{Order: confirmed, Tickets: tickets}, nil
}

func buildTickets(order *model.Order) []*model.Ticket {
	now := time.Now().UTC()
	tickets := make([]*model.Ticket, 0, len(order.Seats))
	for i, seat := range order.Seats {
		var price float64
		if i < len(order.SeatPrices) {
			price = order.SeatPrices[i]
		}
		tickets = append(tickets, &model.Ticket{
			TicketID: uuid.NewString(),
			OrderID:  order.OrderID,
			EventID:  order.EventID,
			Seat:     seat,
			Price:    price,
			IssuedAt: now,
		})
	}
	return tickets
}

func (s *OrderServiceImpl) replay(ctx context.Context, idempotencyKey string) (*model.OrderWithTickets, error) {
	orderID, err := s.ledger.Find(ctx, idempotencyKey, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, nil
	}

	result, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.metrics.OrderReplaysTotal.Inc()
	logger.WithComponent("saga").Info("idempotent replay",
		zap.String("idempotency_key", idempotencyKey),
		zap.String("order_id", orderID),
	)
	return result, nil
}

// acquire 取得 in-flight 標記；Redis 不可用時放行，只記錄警告
func (s *OrderServiceImpl) acquire(ctx context.Context, key string, owner string) (func(), error) {
	noop := func() {}
	if s.inflight == nil {
		return noop, nil
	}

	ok, err := s.inflight.Acquire(ctx, key, owner, s.saga.InFlightTTL)
	if err != nil {
		logger.WithComponent("saga").Warn("in-flight marker unavailable, continuing", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, apperrors.ErrRequestInProgress
	}

	return func() {
		if err := s.inflight.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			logger.WithComponent("saga").Warn("failed to release in-flight marker", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID string) (*model.OrderWithTickets, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &model.OrderWithTickets{Order: order, Tickets: tickets}, nil
}

func (s *OrderServiceImpl) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	log := logger.WithComponent("saga").With(
		zap.String("operation", "cancel_order"),
		zap.String("order_id", orderID),
	)

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case model.OrderStatusConfirmed:
		return nil, apperrors.NewOrderError(orderID, apperrors.ErrOrderConfirmed)
	case model.OrderStatusCancelled:
		return order, nil
	}

	release, err := s.acquire(ctx, "order:"+orderID, uuid.NewString())
	if err != nil {
		return nil, apperrors.NewOrderError(orderID, err)
	}
	defer release()

	cancelled, err := s.transition(ctx, order, EventClientCancel, nil, nil)
	if err == nil {
		log.Info("order cancelled by client")
		return cancelled, nil
	}
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		return nil, err
	}

	// 與其他流程競爭後重新判斷
	latest, findErr := s.orders.FindByID(ctx, orderID)
	if findErr != nil {
		return nil, findErr
	}
	if latest.Status == model.OrderStatusCancelled {
		return latest, nil
	}
	return nil, apperrors.NewOrderError(orderID, apperrors.ErrOrderConfirmed)
}

func (s *OrderServiceImpl) HandlePaymentCallback(ctx context.Context, callback model.PaymentCallback) error {
	log := logger.WithComponent("saga").With(
		zap.String("operation", "payment_callback"),
		zap.String("order_id", callback.OrderID),
		zap.String("status", string(callback.Status)),
	)

	order, ok, err := s.loadForCallback(ctx, log, callback.OrderID)
	if err != nil || !ok {
		return err
	}
	if order.Status != model.OrderStatusPendingPayment {
		log.Info("payment callback ignored", zap.String("order_status", string(order.Status)))
		return nil
	}

	release, err := s.acquire(ctx, "order:"+order.OrderID, uuid.NewString())
	if err != nil {
		return err
	}
	defer release()

	switch callback.Status {
	case model.PaymentCallbackPaid:
		if callback.PaymentID != "" && !order.HasPayment() {
			order, err = s.recordPayment(ctx, order, callback.PaymentID)
			if err != nil {
				return ignoreInvalidTransition(log, err)
			}
		}

		if _, err := s.inventory.Allocate(ctx, model.AllocateRequest{
			OrderID: order.OrderID,
			EventID: order.EventID,
			Seats:   order.Seats,
			HoldIDs: order.HoldIDs,
		}); err != nil {
			if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
				return err
			}
			log.Warn("allocation failed after payment", zap.Error(err))
			_, err = s.transition(ctx, order, EventAllocationFailed, nil, nil)
			return ignoreInvalidTransition(log, err)
		}

		if _, err := s.confirm(ctx, order); err != nil {
			return ignoreInvalidTransition(log, err)
		}
		log.Info("order confirmed by payment callback")

	case model.PaymentCallbackFailed:
		_, err := s.transition(ctx, order, EventPaymentCallbackFailed, nil, nil)
		return ignoreInvalidTransition(log, err)

	default:
		return fmt.Errorf("%w: unknown payment status %q", apperrors.ErrValidation, callback.Status)
	}
	return nil
}

func (s *OrderServiceImpl) HandleReservationCallback(ctx context.Context, callback model.ReservationCallback) error {
	log := logger.WithComponent("saga").With(
		zap.String("operation", "reservation_callback"),
		zap.String("order_id", callback.OrderID),
		zap.String("action", string(callback.Action)),
	)

	if callback.Action != model.ReservationActionExpired {
		return fmt.Errorf("%w: unknown reservation action %q", apperrors.ErrValidation, callback.Action)
	}

	order, ok, err := s.loadForCallback(ctx, log, callback.OrderID)
	if err != nil || !ok {
		return err
	}
	if order.Status != model.OrderStatusCreated && order.Status != model.OrderStatusPendingPayment {
		log.Info("reservation callback ignored", zap.String("order_status", string(order.Status)))
		return nil
	}

	release, err := s.acquire(ctx, "order:"+order.OrderID, uuid.NewString())
	if err != nil {
		return err
	}
	defer release()

	_, err = s.transition(ctx, order, EventReservationExpired, nil, nil)
	if err == nil {
		log.Info("order cancelled after hold expiry", zap.Strings("seats", callback.Seats))
	}
	return ignoreInvalidTransition(log, err)
}

func (s *OrderServiceImpl) loadForCallback(ctx context.Context, log *zap.Logger, orderID string) (*model.Order, bool, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			log.Warn("callback for unknown order ignored")
			return nil, false, nil
		}
		return nil, false, err
	}
	return order, true, nil
}

// ignoreInvalidTransition 訂單已被其他流程終結時，callback 視為已處理
func ignoreInvalidTransition(log *zap.Logger, err error) error {
	if err != nil && errors.Is(err, apperrors.ErrInvalidTransition) {
		log.Info("callback raced with another transition, ignored", zap.Error(err))
		return nil
	}
	return err
}

func (s *OrderServiceImpl) PurgeIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	purged, err := s.ledger.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	s.metrics.LedgerPurgedTotal.Add(float64(purged))
	return purged, nil
}

// fail 推進到取消狀態；寫入失敗只記錄，原始錯誤仍回給呼叫者
func (s *OrderServiceImpl) fail(ctx context.Context, log *zap.Logger, order *model.Order, event SagaEvent) {
	if _, err := s.transition(context.WithoutCancel(ctx), order, event, nil, nil); err != nil {
		log.Error("failed to cancel order", zap.String("event", string(event)), zap.Error(err))
	}
}

type orderWriter func(ctx context.Context, next *model.Order) (*model.Order, error)

// transition 查狀態表、以 CAS 寫入，成功後才執行補償與通知
func (s *OrderServiceImpl) transition(ctx context.Context, order *model.Order, event SagaEvent, modify func(next *model.Order), write orderWriter) (*model.Order, error) {
	var compensations []Compensation
	updated, err := s.updateOrderWith(ctx, order, func(current *model.Order) (*model.Order, error) {
		t, err := NextTransition(current.Status, event)
		if err != nil {
			return nil, err
		}
		next, comps := t.Apply(current)
		if modify != nil {
			modify(next)
		}
		compensations = comps
		return next, nil
	}, write)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("saga").With(
		zap.String("order_id", updated.OrderID),
		zap.String("event", string(event)),
	)
	s.compensate(ctx, log, updated, compensations)
	s.notify(ctx, log, updated, event)
	return updated, nil
}

func (s *OrderServiceImpl) updateOrder(ctx context.Context, order *model.Order, mutate func(current *model.Order) (*model.Order, error)) (*model.Order, error) {
	return s.updateOrderWith(ctx, order, mutate, nil)
}

// updateOrderWith 版本衝突時重新讀取，讓 mutate 依最新狀態重新決定
func (s *OrderServiceImpl) updateOrderWith(ctx context.Context, order *model.Order, mutate func(current *model.Order) (*model.Order, error), write orderWriter) (*model.Order, error) {
	if write == nil {
		write = s.orders.Update
	}

	current := order
	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		next, err := mutate(current)
		if err != nil {
			return nil, err
		}

		updated, err := write(ctx, next)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, apperrors.ErrVersionConflict) {
			return nil, err
		}

		logger.WithComponent("saga").Info("order version conflict, re-reading",
			zap.String("order_id", order.OrderID),
			zap.Int("attempt", attempt),
		)
		current, err = s.orders.FindByID(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
	}
	return nil, apperrors.ErrVersionConflict
}

func (s *OrderServiceImpl) compensate(ctx context.Context, log *zap.Logger, order *model.Order, compensations []Compensation) {
	for _, c := range compensations {
		switch c {
		case CompensateReleaseSeats:
			s.releaseSeats(ctx, log, order)
		case CompensateRefundPayment:
			s.refund(ctx, log, order.PaymentID)
		}
	}
}

// releaseSeats 盡力而為，失敗不影響訂單取消
func (s *OrderServiceImpl) releaseSeats(ctx context.Context, log *zap.Logger, order *model.Order) {
	_, err := s.inventory.Release(context.WithoutCancel(ctx), model.ReleaseRequest{
		OrderID: order.OrderID,
		EventID: order.EventID,
		HoldIDs: order.HoldIDs,
		Seats:   order.Seats,
	})
	if err != nil {
		s.metrics.CompensationFailuresTotal.WithLabelValues(string(CompensateReleaseSeats)).Inc()
		log.Error("compensation failed: release seats", zap.Strings("seats", order.Seats), zap.Error(err))
	}
}

func (s *OrderServiceImpl) refund(ctx context.Context, log *zap.Logger, paymentID string) {
	if paymentID == "" {
		return
	}
	if _, err := s.payments.Refund(context.WithoutCancel(ctx), paymentID); err != nil {
		s.metrics.CompensationFailuresTotal.WithLabelValues(string(CompensateRefundPayment)).Inc()
		log.Error("compensation failed: refund payment", zap.String("payment_id", paymentID), zap.Error(err))
	}
}

func (s *OrderServiceImpl) notify(ctx context.Context, log *zap.Logger, order *model.Order, event SagaEvent) {
	var eventType, reason string
	switch order.Status {
	case model.OrderStatusConfirmed:
		s.metrics.OrdersConfirmedTotal.Inc()
		eventType = events.TypeOrderConfirmed
	case model.OrderStatusCancelled:
		reason = cancelReason(event)
		s.metrics.OrdersCancelledTotal.WithLabelValues(reason).Inc()
		eventType = events.TypeOrderCancelled
	default:
		return
	}

	err := s.publisher.PublishOrderEvent(context.WithoutCancel(ctx), events.OrderEvent{
		Type:          eventType,
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		EventID:       order.EventID,
		Seats:         order.Seats,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Warn("failed to publish order event", zap.String("type", eventType), zap.Error(err))
	}
}
