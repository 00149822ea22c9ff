package main

import (
	"context"
	"fmt"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/internal/handler"
	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/middleware"
	"ticket-fulfillment/internal/repository"
	"ticket-fulfillment/internal/service"
	"ticket-fulfillment/internal/worker"
	"ticket-fulfillment/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInventoryCmd(loaded func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Run the seat inventory API with the hold expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventory(loaded())
		},
	}
}

func runInventory(cfg *config.Config) error {
	log := logger.WithComponent("inventory").With(zap.String("operation", "run"))

	ctx, stop := signalContext()
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(reg)

	retry := retryPolicy(cfg)
	timeout := cfg.Services.HTTPTimeout

	var catalog client.DirectoryClient
	if cfg.Services.CatalogURL != "" {
		catalog = client.NewDirectoryClient(nil, client.NewClient("catalog", cfg.Services.CatalogURL, timeout, retry))
	}

	inventoryService := service.NewInventoryService(
		pool,
		repository.NewSeatRepository(pool),
		repository.NewHoldRepository(pool),
		repository.NewAllocationRepository(),
		catalog,
		inventoryMetrics,
		cfg.Saga.HoldDuration,
	)

	var notifier client.ExpiryNotifier
	if cfg.Services.OrderWebhookURL != "" {
		notifier = client.NewWebhookExpiryNotifier(client.NewClient("order-webhook", cfg.Services.OrderWebhookURL, timeout, retry))
	}

	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	defer cancelSweeper()
	sweeper := worker.NewHoldSweeper(inventoryService, notifier, inventoryMetrics, cfg.Sweeper.Interval)
	if err := sweeper.Start(sweeperCtx); err != nil {
		return fmt.Errorf("failed to start hold sweeper: %w", err)
	}

	idempotency := middleware.IdempotentResponse(repository.NewInventoryIdempotencyRepository(pool), inventoryMetrics)
	router := handler.NewRouter(reg, handler.NewInventoryHandler(inventoryService, idempotency))

	err = runHTTPServer(ctx, "inventory", cfg.Server.InventoryPort, router, cfg.Server)
	// 連線池關閉前先停 sweeper
	sweeper.Stop()
	log.Info("inventory service stopped")
	return err
}
