package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      ApplicationConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Services ServicesConfig
	JWT      JWTConfig
	Saga     SagaConfig
	Retry    RetryConfig
	Sweeper  SweeperConfig
	Queue    QueueConfig
	RabbitMQ RabbitMQConfig
}

type ApplicationConfig struct {
	Name        string
	Environment string
	LogLevel    string
}

// IsProduction 正式環境不回傳錯誤細節
func (a ApplicationConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	OrdersPort      int
	InventoryPort   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL 給 golang-migrate 使用的連線字串
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ServicesConfig 外部服務位址
type ServicesConfig struct {
	InventoryURL    string
	PaymentURL      string
	UsersURL        string
	CatalogURL      string
	OrderWebhookURL string
	HTTPTimeout     time.Duration
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ServiceID string
	TTL       time.Duration
}

type SagaConfig struct {
	HoldDuration   time.Duration
	IdempotencyTTL time.Duration
	InFlightTTL    time.Duration
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type SweeperConfig struct {
	Interval        time.Duration
	JanitorInterval time.Duration
}

type QueueConfig struct {
	Backend          string // redis | memory
	ConsumerID       string
	BufferSize       int
	ClaimMinIdleTime time.Duration
	MaxRetryCount    int
}

type RabbitMQConfig struct {
	URL string
}

var AppConfig *Config

func LoadConfig() *Config {
	v := newViper()

	AppConfig = &Config{
		App:      GetAppConfig(v),
		Server:   GetServerConfig(v),
		Database: GetDatabaseConfig(v),
		Redis:    GetRedisConfig(v),
		Services: GetServicesConfig(v),
		JWT:      GetJWTConfig(v),
		Saga:     GetSagaConfig(v),
		Retry:    GetRetryConfig(v),
		Sweeper:  GetSweeperConfig(v),
		Queue:    GetQueueConfig(v),
		RabbitMQ: RabbitMQConfig{URL: v.GetString("RABBITMQ_URL")},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	v := newViper()

	cfg := &Config{
		App:      GetAppConfig(v),
		Server:   GetServerConfig(v),
		Services: GetServicesConfig(v),
		JWT:      GetJWTConfig(v),
		Saga:     GetSagaConfig(v),
		Retry:    RetryConfig{Attempts: 3, Delay: 10 * time.Millisecond},
		Sweeper:  GetSweeperConfig(v),
		Queue:    GetQueueConfig(v),
	}
	cfg.App.Environment = "test"

	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	cfg.Redis = RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	cfg.Queue.Backend = "memory"

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	// .env 可有可無，環境變數優先
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ticket-fulfillment")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("ORDERS_PORT", 3001)
	v.SetDefault("INVENTORY_PORT", 3002)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RESERVATION_SERVICE_URL", "http://localhost:3002/v1/seats")
	v.SetDefault("PAYMENT_SERVICE_URL", "http://localhost:3003/v1/payments")
	v.SetDefault("USER_SERVICE_URL", "http://localhost:3004/v1/users")
	v.SetDefault("CATALOG_SERVICE_URL", "http://localhost:3005/v1/events")
	v.SetDefault("ORDER_WEBHOOK_URL", "")
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("JWT_ISSUER", "https://auth.local/")
	v.SetDefault("JWT_AUDIENCE", "payment-service")
	v.SetDefault("SERVICE_ID", "order-service")
	v.SetDefault("JWT_TTL", "1h")

	v.SetDefault("HOLD_DURATION", "900s")
	v.SetDefault("IDEMPOTENCY_TTL", "3600s")
	v.SetDefault("INFLIGHT_TTL", "900s")

	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_DELAY", "500ms")

	v.SetDefault("SWEEPER_INTERVAL", "1m")
	v.SetDefault("LEDGER_JANITOR_INTERVAL", "10m")

	v.SetDefault("QUEUE_BACKEND", "redis")
	v.SetDefault("QUEUE_CONSUMER_ID", "")
	v.SetDefault("QUEUE_BUFFER_SIZE", 1024)
	v.SetDefault("QUEUE_CLAIM_MIN_IDLE", "5s")
	v.SetDefault("QUEUE_MAX_RETRY", 5)

	v.SetDefault("RABBITMQ_URL", "")
}

func GetAppConfig(v *viper.Viper) ApplicationConfig {
	return ApplicationConfig{
		Name:        v.GetString("APP_NAME"),
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}
}

func GetServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		OrdersPort:      v.GetInt("ORDERS_PORT"),
		InventoryPort:   v.GetInt("INVENTORY_PORT"),
		ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
	}
}

func GetDatabaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSL_MODE"),
	}
}

func GetRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetString("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}
}

func GetServicesConfig(v *viper.Viper) ServicesConfig {
	return ServicesConfig{
		InventoryURL:    v.GetString("RESERVATION_SERVICE_URL"),
		PaymentURL:      v.GetString("PAYMENT_SERVICE_URL"),
		UsersURL:        v.GetString("USER_SERVICE_URL"),
		CatalogURL:      v.GetString("CATALOG_SERVICE_URL"),
		OrderWebhookURL: v.GetString("ORDER_WEBHOOK_URL"),
		HTTPTimeout:     v.GetDuration("HTTP_CLIENT_TIMEOUT"),
	}
}

func GetJWTConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:    v.GetString("JWT_SECRET"),
		Issuer:    v.GetString("JWT_ISSUER"),
		Audience:  v.GetString("JWT_AUDIENCE"),
		ServiceID: v.GetString("SERVICE_ID"),
		TTL:       v.GetDuration("JWT_TTL"),
	}
}

func GetSagaConfig(v *viper.Viper) SagaConfig {
	return SagaConfig{
		HoldDuration:   v.GetDuration("HOLD_DURATION"),
		IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),
		InFlightTTL:    v.GetDuration("INFLIGHT_TTL"),
	}
}

func GetRetryConfig(v *viper.Viper) RetryConfig {
	return RetryConfig{
		Attempts: v.GetInt("RETRY_ATTEMPTS"),
		Delay:    v.GetDuration("RETRY_DELAY"),
	}
}

func GetSweeperConfig(v *viper.Viper) SweeperConfig {
	return SweeperConfig{
		Interval:        v.GetDuration("SWEEPER_INTERVAL"),
		JanitorInterval: v.GetDuration("LEDGER_JANITOR_INTERVAL"),
	}
}

func GetQueueConfig(v *viper.Viper) QueueConfig {
	return QueueConfig{
		Backend:          v.GetString("QUEUE_BACKEND"),
		ConsumerID:       v.GetString("QUEUE_CONSUMER_ID"),
		BufferSize:       v.GetInt("QUEUE_BUFFER_SIZE"),
		ClaimMinIdleTime: v.GetDuration("QUEUE_CLAIM_MIN_IDLE"),
		MaxRetryCount:    v.GetInt("QUEUE_MAX_RETRY"),
	}
}
