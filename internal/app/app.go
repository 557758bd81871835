package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/config"
	"github.com/Fblink88/appburguer-backend/internal/event"
	handler "github.com/Fblink88/appburguer-backend/internal/handler/http"
	"github.com/Fblink88/appburguer-backend/internal/migrations"
	pgrepo "github.com/Fblink88/appburguer-backend/internal/repository/postgres"
	redisrepo "github.com/Fblink88/appburguer-backend/internal/repository/redis"
	"github.com/Fblink88/appburguer-backend/internal/service"
	"github.com/Fblink88/appburguer-backend/pkg/database"
	"github.com/Fblink88/appburguer-backend/pkg/health"
	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
	pkgkafka "github.com/Fblink88/appburguer-backend/pkg/kafka"
	"github.com/Fblink88/appburguer-backend/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	consumer        *pkgkafka.Consumer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tracing.
	tracingShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "storefront",
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// PostgreSQL.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "storefront")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Kafka.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories.
	cartRepo := redisrepo.NewCartRepository(rdb, cfg.CartTTL())
	markerRepo := redisrepo.NewMarkerRepository(rdb, cfg.CartTTL())
	badgeRepo := redisrepo.NewBadgeRepository(rdb, cfg.CartTTL())
	sessionRepo := pgrepo.NewCheckoutRepository(pool)

	// Collaborator clients, each behind its own circuit breaker.
	baseClient := httpclient.New(httpclient.DefaultConfig())
	orderClient := client.NewOrderClient(cfg.OrderServiceURL, breaker(baseClient, "order", cfg, logger), logger)
	customerClient := client.NewCustomerClient(cfg.CustomerServiceURL, breaker(baseClient, "customer", cfg, logger), logger)
	gatewayClient := client.NewGatewayClient(cfg.PaymentGatewayURL, breaker(baseClient, "payment-gateway", cfg, logger), logger)

	// Event plumbing: producer for cart changes, consumer feeding the
	// badge projection and in-process notifier.
	eventProducer := event.NewProducer(producer, logger)
	notifier := event.NewNotifier()
	projector := event.NewBadgeProjector(badgeRepo, notifier, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaConsumerGroup,
		Topics:  []string{event.TopicCartChanged, event.TopicCartCleared},
	}, projector.Handle, logger)

	// Services.
	cartService := service.NewCartService(cartRepo, eventProducer, logger)
	checkoutService := service.NewCheckoutService(
		sessionRepo, markerRepo, cartService,
		orderClient, customerClient, gatewayClient,
		logger, cfg.CheckoutTTL(),
	)
	outcomeService := service.NewOutcomeService(markerRepo, sessionRepo, cartService, orderClient, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := handler.NewRouter(handler.RouterDeps{
		Cart:      cartService,
		Checkout:  checkoutService,
		Outcome:   outcomeService,
		Badges:    badgeRepo,
		Notifier:  notifier,
		Orders:    orderClient,
		Customers: customerClient,
		Health:    healthHandler,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		pool:            pool,
		producer:        producer,
		consumer:        consumer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

func breaker(base *httpclient.Client, name string, cfg *config.Config, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.MaxRequests = cfg.CBMaxRequests
	cbCfg.Interval = time.Duration(cfg.CBInterval) * time.Second
	cbCfg.Timeout = time.Duration(cfg.CBTimeout) * time.Second
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	return httpclient.NewCircuitBreakerClient(base, cbCfg, logger)
}

// Run starts the HTTP server and the badge consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("badge consumer: %w", err)
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("consumer close error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
