// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"

	pkgconfig "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/config"
)

// Config holds all configuration for the commerce service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"commerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"commerce_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"commerce_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (shipping rate cache)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT verification
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Payment gateway. Empty client credentials select the mock gateway.
	PaymentBaseURL     string `env:"PAYMENT_BASE_URL" envDefault:"https://api.gateway.example"`
	PaymentClientID    string `env:"PAYMENT_CLIENT_ID"`
	PaymentSecretKey   string `env:"PAYMENT_SECRET_KEY"`
	PaymentCallbackURL string `env:"PAYMENT_CALLBACK_URL"`

	// Shipping rate provider. An empty API key selects the mock provider.
	ShippingBaseURL string `env:"SHIPPING_BASE_URL" envDefault:"https://api.rajaongkir.example"`
	ShippingAPIKey  string `env:"SHIPPING_API_KEY"`
	ShippingOrigin  string `env:"SHIPPING_ORIGIN_CITY" envDefault:"Jakarta"`

	// ERP connector. An empty API key selects the mock client.
	ERPBaseURL string `env:"ERP_BASE_URL" envDefault:"https://erp.internal.example"`
	ERPAPIKey  string `env:"ERP_API_KEY"`

	// ERP sync worker
	SyncDrainIntervalSecs int `env:"SYNC_DRAIN_INTERVAL_SECONDS" envDefault:"10"`
	SyncPullIntervalSecs  int `env:"SYNC_PULL_INTERVAL_SECONDS" envDefault:"3600"`
	SyncBatchSize         int `env:"SYNC_BATCH_SIZE" envDefault:"20"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load commerce config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ShippingOrigin == "" {
		return fmt.Errorf("SHIPPING_ORIGIN_CITY is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.SyncDrainIntervalSecs <= 0 || c.SyncPullIntervalSecs <= 0 {
		return fmt.Errorf("sync intervals must be > 0")
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be > 0, got %d", c.SyncBatchSize)
	}
	// The mock gateway signs with defaults, so partial credentials are the
	// only misconfiguration worth rejecting.
	if (c.PaymentClientID == "") != (c.PaymentSecretKey == "") {
		return fmt.Errorf("PAYMENT_CLIENT_ID and PAYMENT_SECRET_KEY must be set together")
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
