package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/client"
	"ticket-fulfillment/internal/database"
	"ticket-fulfillment/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// signalContext SIGINT / SIGTERM 時取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openStores(cfg *config.Config) (*pgxpool.Pool, *redis.Client, error) {
	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	return pool, rdb, nil
}

func retryPolicy(cfg *config.Config) client.RetryPolicy {
	policy := client.DefaultRetryPolicy()
	if cfg.Retry.Attempts > 0 {
		policy.Attempts = cfg.Retry.Attempts
	}
	if cfg.Retry.Delay > 0 {
		policy.Delay = cfg.Retry.Delay
	}
	return policy
}

// runHTTPServer 阻塞到 ctx 結束，再依 ShutdownTimeout 優雅關閉
func runHTTPServer(ctx context.Context, name string, port int, router *gin.Engine, cfg config.ServerConfig) error {
	log := logger.WithComponent("server").With(zap.String("service", name), zap.Int("port", port))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	log.Info("http server stopped")
	return nil
}
