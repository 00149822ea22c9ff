package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ticketing"

// InventoryMetrics 庫存服務指標
type InventoryMetrics struct {
	ReservationsTotal         prometheus.Counter
	ReservationsFailedTotal   *prometheus.CounterVec
	AllocationsTotal          prometheus.Counter
	ReleasesTotal             prometheus.Counter
	HoldsExpiredTotal         prometheus.Counter
	SweeperFailuresTotal      prometheus.Counter
	ExpiryNotifyFailuresTotal prometheus.Counter
	IdempotentReplaysTotal    prometheus.Counter
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	m := &InventoryMetrics{
		ReservationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "seat_reservations_total",
			Help:      "Total number of successful seat reservations",
		}),
		ReservationsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "seat_reservations_failed_total",
			Help:      "Total number of failed seat reservations",
		}, []string{"reason"}),
		AllocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "seat_allocations_total",
			Help:      "Total number of successful seat allocations",
		}),
		ReleasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "seat_releases_total",
			Help:      "Total number of holds released by explicit release calls",
		}),
		HoldsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "holds_expired_total",
			Help:      "Total number of holds reclaimed by the expiry sweeper",
		}),
		SweeperFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "hold_sweeper_failures_total",
			Help:      "Total number of sweeper runs that rolled back",
		}),
		ExpiryNotifyFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "expiry_notification_failures_total",
			Help:      "Total number of hold expiry notifications that could not be delivered",
		}),
		IdempotentReplaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "idempotent_replays_total",
			Help:      "Total number of reserve responses served from the idempotency cache",
		}),
	}

	reg.MustRegister(
		m.ReservationsTotal,
		m.ReservationsFailedTotal,
		m.AllocationsTotal,
		m.ReleasesTotal,
		m.HoldsExpiredTotal,
		m.SweeperFailuresTotal,
		m.ExpiryNotifyFailuresTotal,
		m.IdempotentReplaysTotal,
	)
	return m
}

// OrderMetrics 訂單服務指標
type OrderMetrics struct {
	OrdersCreatedTotal        prometheus.Counter
	OrdersConfirmedTotal      prometheus.Counter
	OrdersCancelledTotal      *prometheus.CounterVec
	OrderReplaysTotal         prometheus.Counter
	CompensationFailuresTotal *prometheus.CounterVec
	ConfirmFailuresTotal      prometheus.Counter
	WebhookFailuresTotal      *prometheus.CounterVec
	LedgerPurgedTotal         prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	m := &OrderMetrics{
		OrdersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "orders_created_total",
			Help:      "Total number of orders created",
		}),
		OrdersConfirmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "orders_confirmed_total",
			Help:      "Total number of orders confirmed",
		}),
		OrdersCancelledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled",
		}, []string{"reason"}),
		OrderReplaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "order_replays_total",
			Help:      "Total number of order requests answered from the idempotency ledger",
		}),
		CompensationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "saga_compensation_failures_total",
			Help:      "Total number of compensating actions that failed",
		}, []string{"action"}),
		ConfirmFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "order_confirm_failures_total",
			Help:      "Total number of paid and allocated orders whose confirmation could not be written",
		}),
		WebhookFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "webhook_failures_total",
			Help:      "Total number of webhook callbacks that failed processing",
		}, []string{"kind"}),
		LedgerPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "idempotency_keys_purged_total",
			Help:      "Total number of expired idempotency keys removed",
		}),
	}

	reg.MustRegister(
		m.OrdersCreatedTotal,
		m.OrdersConfirmedTotal,
		m.OrdersCancelledTotal,
		m.OrderReplaysTotal,
		m.CompensationFailuresTotal,
		m.ConfirmFailuresTotal,
		m.WebhookFailuresTotal,
		m.LedgerPurgedTotal,
	)
	return m
}
