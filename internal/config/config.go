package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	CatalogBackendPostgres = "postgres"
	CatalogBackendHTTP     = "http"
)

type Config struct {
	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	// Empty RedisAddr switches the alert lease to in-process and disables the live stream.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	RabbitMQURL           string `env:"RABBITMQ_URL"`
	NotificationsExchange string `env:"NOTIFICATIONS_EXCHANGE,default=nestwatch.notifications"`

	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60"`

	CatalogBackend    string        `env:"CATALOG_BACKEND,default=postgres"`
	CatalogAPIBaseURL string        `env:"CATALOG_API_BASE_URL"`
	CatalogTimeout    time.Duration `env:"CATALOG_TIMEOUT,default=10s"`

	HTTPAddr          string        `env:"HTTP_ADDR,default=:8080"`
	PassInterval      time.Duration `env:"PASS_INTERVAL,default=1m"`
	PassWorkers       int           `env:"PASS_WORKERS,default=4"`
	AlertLeaseTTL     time.Duration `env:"ALERT_LEASE_TTL,default=2m"`
	DeliveryInterval  time.Duration `env:"DELIVERY_INTERVAL,default=30s"`
	DeliveryBatchSize int           `env:"DELIVERY_BATCH_SIZE,default=50"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration through l instead of the process environment.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CatalogBackend {
	case CatalogBackendPostgres:
	case CatalogBackendHTTP:
		if c.CatalogAPIBaseURL == "" {
			return fmt.Errorf("CATALOG_API_BASE_URL is required when CATALOG_BACKEND=%s", CatalogBackendHTTP)
		}
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}
	if c.PassInterval <= 0 {
		return fmt.Errorf("PASS_INTERVAL must be positive, got %s", c.PassInterval)
	}
	if c.PassWorkers <= 0 {
		return fmt.Errorf("PASS_WORKERS must be positive, got %d", c.PassWorkers)
	}
	return nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}
