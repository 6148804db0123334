package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/boxoffice/internal/adapter/http"
	"github.com/iho/boxoffice/internal/adapter/http/handler"
	"github.com/iho/boxoffice/internal/adapter/http/middleware"
	"github.com/iho/boxoffice/internal/adapter/processor"
	postgresRepo "github.com/iho/boxoffice/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/boxoffice/internal/adapter/repository/redis"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/fx"
	"github.com/iho/boxoffice/internal/infrastructure/auth"
	"github.com/iho/boxoffice/internal/infrastructure/config"
	"github.com/iho/boxoffice/internal/infrastructure/eventpublisher"
	"github.com/iho/boxoffice/internal/infrastructure/logger"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/infrastructure/postgres"
	"github.com/iho/boxoffice/internal/infrastructure/recovery"
	"github.com/iho/boxoffice/internal/infrastructure/redis"
	"github.com/iho/boxoffice/internal/usecase"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	limiterCleanupInterval = time.Minute
	webhookRateLimitRPS    = 50
	webhookRateLimitBurst  = 100
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logr := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "boxoffice",
		Version: version,
	})
	log.Logger = logr

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}

	logr.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logr zerolog.Logger) error {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
		LockTimeout:    cfg.DatabaseLockWait,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	logr.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, redis.WithClientName("boxoffice"))
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logr.Info().Msg("connected to redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	app, err := buildApp(cfg, pool, redisClient, m, logr)
	if err != nil {
		return err
	}

	publisher, closePublisher := newPublisher(cfg, logr)
	defer closePublisher()

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: postgresRepo.NewOutboxRepository(pool),
		Publisher:  publisher,
		Metrics:    m,
		Logger:     logr,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	sweeper := recovery.NewWorker(recovery.Config{
		Recoverer: app.purchases,
		Lease:     redisRepo.NewLease(redisClient),
		Metrics:   m,
		Logger:    logr,
		Interval:  cfg.RecoveryInterval,
		Grace:     cfg.RecoveryGrace,
		BatchSize: cfg.RecoveryBatchSize,
	})

	apiLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m, "api")
	webhookLimiter := middleware.NewRateLimiter(webhookRateLimitRPS, webhookRateLimitBurst).WithMetrics(m, "webhook")

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler:         handler.NewHealthHandler(pool, redisClient),
		WalletHandler:         app.walletHandler,
		PurchaseHandler:       app.purchaseHandler,
		TicketHandler:         app.ticketHandler,
		InvoiceHandler:        app.invoiceHandler,
		ReconciliationHandler: app.reconciliationHandler,
		Authenticator:         app.authenticator,
		IdempotencyStore:      redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           apiLimiter,
		WebhookRateLimiter:    webhookLimiter,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		Logger:                logr,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logr.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logr.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return outbox.Start(gctx) })
	g.Go(func() error { return sweeper.Start(gctx) })
	g.Go(func() error { return apiLimiter.Run(gctx, limiterCleanupInterval) })
	g.Go(func() error { return webhookLimiter.Run(gctx, limiterCleanupInterval) })

	return g.Wait()
}

type application struct {
	purchases *usecase.PurchaseUseCase

	authenticator         *middleware.Authenticator
	walletHandler         *handler.WalletHandler
	purchaseHandler       *handler.PurchaseHandler
	ticketHandler         *handler.TicketHandler
	invoiceHandler        *handler.InvoiceHandler
	reconciliationHandler *handler.ReconciliationHandler
}

func buildApp(cfg *config.Config, pool *pgxpool.Pool, redisClient *goredis.Client, m *metrics.Metrics, logr zerolog.Logger) (*application, error) {
	converter, err := newConverter(cfg)
	if err != nil {
		return nil, err
	}
	fee, err := cfg.ParsedPurchaseFee()
	if err != nil {
		return nil, err
	}

	txManager := postgresRepo.NewTxManager(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	ticketRepo := postgresRepo.NewTicketRepository(pool)
	purchaseRepo := postgresRepo.NewPurchaseRepository(pool)
	invoiceRepo := postgresRepo.NewInvoiceRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier().WithLogger(logr)

	users := usecase.NewUserUseCase(userRepo, redisRepo.NewCache(redisClient), logr)
	wallet := usecase.NewWalletUseCase(txManager, balanceRepo, entryRepo, outboxRepo, idGen, retrier, converter, logr)
	tickets := usecase.NewTicketUseCase(txManager, ticketRepo, userRepo, outboxRepo, idGen, postgresRepo.NewQRCodeGenerator(), retrier, logr)
	purchases := usecase.NewPurchaseUseCase(txManager, purchaseRepo, ticketRepo, outboxRepo, wallet, tickets, idGen, retrier, logr)
	recon := usecase.NewReconciliationUseCase(balanceRepo, entryRepo, ledgerRepo)

	var authenticator *middleware.Authenticator
	if cfg.AuthEnabled {
		authenticator = middleware.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, 0), users, logr)
	} else {
		logr.Warn().Msg("AUTH_ENABLED=false: trusting X-User-* headers")
		authenticator = middleware.NewHeaderAuthenticator(users, logr)
	}

	app := &application{
		purchases:             purchases,
		authenticator:         authenticator,
		walletHandler:         handler.NewWalletHandler(wallet, users, m),
		purchaseHandler:       handler.NewPurchaseHandler(purchases, fee, m),
		ticketHandler:         handler.NewTicketHandler(tickets, m),
		reconciliationHandler: handler.NewReconciliationHandler(recon, m),
	}

	client, err := processor.NewClient(processor.Config{
		BaseURL:     cfg.ProcessorBaseURL,
		MerchantID:  cfg.ProcessorMerchantID,
		APIKey:      cfg.ProcessorAPIKey,
		CallbackURL: cfg.ProcessorCallbackURL,
		ReturnURL:   cfg.ProcessorReturnURL,
		Timeout:     cfg.ProcessorTimeout,
	}, logr)
	if err != nil {
		logr.Warn().Err(err).Msg("payment processor not configured: invoices and webhooks disabled")
		return app, nil
	}

	payments := usecase.NewPaymentUseCase(
		txManager, invoiceRepo, outboxRepo, wallet, client,
		postgresRepo.NewUUIDGenerator(), idGen, retrier, logr,
	).WithLimits(cfg.InvoiceLifetime, cfg.ProcessorTimeout)
	app.invoiceHandler = handler.NewInvoiceHandler(payments, m)

	return app, nil
}

// newConverter applies FX_RATES overrides on top of the default table.
func newConverter(cfg *config.Config) (*fx.Converter, error) {
	overrides, err := cfg.ParsedFXRates()
	if err != nil {
		return nil, err
	}

	rates := fx.DefaultRates()
	for code, rate := range overrides {
		c, err := domain.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("FX_RATES: %w", err)
		}
		rates[c] = rate
	}
	return fx.NewConverter(rates)
}

// newPublisher picks the broker publisher, or logs events when no broker is configured.
func newPublisher(cfg *config.Config, logr zerolog.Logger) (eventpublisher.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		logr.Info().Msg("RABBITMQ_URL not set: outbox events go to the log")
		return eventpublisher.NewLogPublisher(logr), func() {}
	}

	p := eventpublisher.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logr)
	return p, func() {
		if err := p.Close(); err != nil {
			logr.Warn().Err(err).Msg("failed to close broker connection")
		}
	}
}
