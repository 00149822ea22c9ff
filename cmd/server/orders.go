package main

import (
	"context"
	"fmt"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/cache"
	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/events"
	"ticket-fulfillment/internal/handler"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/queue"
	"ticket-fulfillment/internal/repository"
	"ticket-fulfillment/internal/service"
	"ticket-fulfillment/internal/worker"
	"ticket-fulfillment/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOrdersCmd(loaded func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Run the order fulfillment API with its callback worker and ledger janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(loaded())
		},
	}
}

func runOrders(cfg *config.Config) error {
	log := logger.WithComponent("orders").With(zap.String("operation", "run"))

	ctx, stop := signalContext()
	defer stop()

	pool, rdb, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(reg)

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	retry := retryPolicy(cfg)
	timeout := cfg.Services.HTTPTimeout
	signer := &client.ServiceTokenSigner{
		Secret:    []byte(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		ServiceID: cfg.JWT.ServiceID,
		Roles:     []string{"payments:charge", "payments:refund"},
		TTL:       cfg.JWT.TTL,
	}

	orderService := service.NewOrderService(service.OrderServiceDeps{
		Pool:      pool,
		Orders:    repository.NewOrderRepository(pool),
		Tickets:   repository.NewTicketRepository(pool),
		Ledger:    repository.NewOrderIdempotencyRepository(pool),
		Inventory: client.NewInventoryClient(client.NewClient("inventory", cfg.Services.InventoryURL, timeout, retry)),
		Payments:  client.NewPaymentClient(client.NewClient("payment", cfg.Services.PaymentURL, timeout, retry), signer),
		Directory: client.NewDirectoryClient(
			client.NewClient("users", cfg.Services.UsersURL, timeout, retry),
			client.NewClient("catalog", cfg.Services.CatalogURL, timeout, retry),
		),
		InFlight:  cache.NewRedisInFlightTracker(rdb),
		Publisher: publisher,
		Metrics:   orderMetrics,
		Saga:      cfg.Saga,
	})

	callbacks, err := newCallbackQueue(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	// 佇列與資料庫都就緒後才啟動背景工作
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	callbackWorker := worker.NewCallbackWorker(orderService, callbacks, orderMetrics)
	if err := callbackWorker.Start(workerCtx); err != nil {
		cancelWorkers()
		return fmt.Errorf("failed to start callback worker: %w", err)
	}
	janitor := worker.NewLedgerJanitor(orderService, cfg.Sweeper.JanitorInterval)
	if err := janitor.Start(workerCtx); err != nil {
		cancelWorkers()
		callbackWorker.Wait()
		return fmt.Errorf("failed to start ledger janitor: %w", err)
	}
	stopWorkers := func() {
		janitor.Stop()
		cancelWorkers()
		callbackWorker.Wait()
	}

	router := handler.NewRouter(reg,
		handler.NewOrderHandler(orderService),
		handler.NewWebhookHandler(callbacks),
	)

	err = runHTTPServer(ctx, "orders", cfg.Server.OrdersPort, router, cfg.Server)
	// 連線池關閉前先停 worker
	stopWorkers()
	log.Info("order service stopped")
	return err
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.WithComponent("orders").Info("RABBITMQ_URL not set, order events disabled")
		return events.NoopPublisher{}, nil
	}
	publisher, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rabbitmq publisher: %w", err)
	}
	return publisher, nil
}

func newCallbackQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.CallbackQueue, error) {
	if cfg.Queue.Backend == "memory" {
		return queue.NewMemoryCallbackQueue(cfg.Queue.BufferSize, cfg.Queue.MaxRetryCount), nil
	}

	consumerID := cfg.Queue.ConsumerID
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	q, err := queue.NewRedisStreamCallbackQueue(ctx, rdb, consumerID, &queue.RedisStreamCallbackQueueConfig{
		ClaimMinIdleTime: cfg.Queue.ClaimMinIdleTime,
		MaxRetryCount:    cfg.Queue.MaxRetryCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize callback queue: %w", err)
	}
	return q, nil
}
