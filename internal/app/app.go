// Package app wires together all dependencies and runs the commerce service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/auth"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/config"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/event"
	handler "github.com/kantiss1998/ansania-ecommerce-sub000/internal/handler/http"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/erp"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/shipping"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository/postgres"
	redisrepo "github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository/redis"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/worker"
	"github.com/kantiss1998/ansania-ecommerce-sub000/migrations"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/health"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httpclient"
	pkgkafka "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/kafka"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/tracing"
)

// App holds every long-lived component of the service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	syncWorker     *worker.ERPSyncWorker
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "commerce",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "commerce")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the shipping rate cache.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer with connection validation and retry.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Repositories.
	cartRepo := postgres.NewCartRepository(pool)
	variantRepo := postgres.NewVariantRepository(pool)
	voucherRepo := postgres.NewVoucherRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	syncLogRepo := postgres.NewSyncLogRepository(pool)
	rateCache := redisrepo.NewRateCache(rdb)

	// Provider adapters. Missing credentials select the mock implementation
	// so the service runs end to end without external accounts.
	paymentProvider := newPaymentProvider(cfg, logger)
	shippingProvider := newShippingProvider(cfg, logger)
	erpClient := newERPClient(cfg, logger)

	// Build the dependency graph.
	eventProducer := event.NewProducer(producer, logger)
	cartService := service.NewCartService(cartRepo, variantRepo, voucherRepo, logger)
	shippingService := service.NewShippingService(addressRepo, cartRepo, rateCache, shippingProvider, cfg.ShippingOrigin, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, variantRepo, voucherRepo, addressRepo, shippingService, eventProducer, logger)
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, paymentProvider, eventProducer, logger)
	syncService := service.NewSyncService(syncLogRepo)

	syncWorker := worker.New(outboxRepo, orderRepo, variantRepo, syncLogRepo, erpClient, worker.Config{
		DrainInterval: time.Duration(cfg.SyncDrainIntervalSecs) * time.Second,
		PullInterval:  time.Duration(cfg.SyncPullIntervalSecs) * time.Second,
		BatchSize:     cfg.SyncBatchSize,
	}, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(cartService, shippingService, orderService, paymentService, syncService, healthHandler, handler.RouterConfig{
		TokenValidator: auth.NewVerifier(cfg.JWTSecret).Validate,
		CORS:           corsCfg,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		syncWorker:     syncWorker,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newPaymentProvider selects the gateway adapter: the real HTTP gateway when
// credentials are configured, the signing mock otherwise.
func newPaymentProvider(cfg *config.Config, logger *slog.Logger) payment.Provider {
	if cfg.PaymentClientID == "" {
		logger.Warn("payment gateway credentials missing, using mock gateway")
		return payment.NewMock(cfg.PaymentClientID, cfg.PaymentSecretKey)
	}
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("payment-gateway"),
		logger,
	)
	return payment.NewGateway(payment.Config{
		BaseURL:      cfg.PaymentBaseURL,
		ClientID:     cfg.PaymentClientID,
		SecretKey:    cfg.PaymentSecretKey,
		CallbackURL:  cfg.PaymentCallbackURL,
		ProviderName: "gateway",
	}, client)
}

// newShippingProvider selects the rate aggregator or its mock.
func newShippingProvider(cfg *config.Config, logger *slog.Logger) shipping.RateProvider {
	if cfg.ShippingAPIKey == "" {
		logger.Warn("shipping API key missing, using mock rate provider")
		return shipping.NewMock()
	}
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("shipping-rates"),
		logger,
	)
	return shipping.NewAggregator(shipping.Config{
		BaseURL: cfg.ShippingBaseURL,
		APIKey:  cfg.ShippingAPIKey,
	}, client)
}

// newERPClient selects the ERP connector or its mock.
func newERPClient(cfg *config.Config, logger *slog.Logger) erp.Client {
	if cfg.ERPAPIKey == "" {
		logger.Warn("ERP API key missing, using mock ERP client")
		return erp.NewMock()
	}
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("erp"),
		logger,
	)
	return erp.NewHTTPClient(erp.Config{
		BaseURL: cfg.ERPBaseURL,
		APIKey:  cfg.ERPAPIKey,
	}, client)
}

// Run starts the HTTP server and the ERP sync worker, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the ERP sync worker. It stops when ctx is canceled.
	go a.syncWorker.Run(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
