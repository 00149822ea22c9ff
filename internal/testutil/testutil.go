//go:build integration

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartPostgres 啟動 postgres 容器、跑完 migration，回傳連接池
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image: "postgres:16",
		Env: map[string]string{
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "test_db",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.LoadTestConfig().Database
	cfg.Host = host
	cfg.Port = mappedPort.Port()

	// 容器剛開 port 時 postgres 可能還在初始化
	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		p, initErr := database.InitDatabase(&cfg)
		if initErr != nil {
			return false
		}
		pool = p
		return true
	}, 30*time.Second, 500*time.Millisecond, "postgres not ready")
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(cfg.URL()))

	return pool
}

// StartRedis 啟動 redis 容器並回傳 client
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rdb, err := database.InitRedis(&config.RedisConfig{Host: host, Port: mappedPort.Port()})
	require.NoError(t, err, fmt.Sprintf("redis at %s:%s", host, mappedPort.Port()))
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb
}
