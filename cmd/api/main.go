package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/solace-health/solace-platform/cmd/mainconfig"
	"github.com/solace-health/solace-platform/internal/api/router"
	"github.com/solace-health/solace-platform/internal/appointments"
	appconfig "github.com/solace-health/solace-platform/internal/config"
	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/internal/locks"
	"github.com/solace-health/solace-platform/internal/observability/metrics"
	"github.com/solace-health/solace-platform/internal/payments"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting solace-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// database/sql handle for the reporting endpoints.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, appointment locks degraded to row locks only", "error", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appointmentMetrics := metrics.NewAppointmentMetrics(registry)

	therapistsRepo := therapists.NewRepository(pool)
	appointmentsRepo := appointments.NewRepository(pool)
	outbox := events.NewOutboxStore(pool)
	locker := locks.NewAppointmentLocker(redisClient, cfg.LockTTL, logger)

	orchestrator := appointments.NewOrchestrator(pool, outbox, locker, appointmentMetrics, logger)
	store := appointments.NewStore(appointmentsRepo, therapistsRepo, orchestrator, logger)

	stripeRefunds := payments.NewStripeRefundService(cfg.StripeSecretKey, logger).
		WithBaseURL(cfg.StripeBaseURL).
		WithAPIVersion(cfg.StripeAPIVersion)
	refundsRepo := payments.NewRepository(pool)
	coordinator := payments.NewCoordinator(appointmentsRepo, therapistsRepo, stripeRefunds, refundsRepo, outbox, locker, appointmentMetrics, logger)

	// Outbox relay ships committed events to the notification queue.
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if cfg.NotifyQueueURL != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := events.NewSQSQueue(awssqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
		relay := events.NewRelay(outbox, queue, logger).
			WithInterval(cfg.OutboxPollInterval).
			WithBatchSize(int32(cfg.OutboxBatchSize))
		go relay.Start(relayCtx)
	} else {
		logger.Warn("NOTIFY_QUEUE_URL not set, outbox relay disabled")
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(store, logger),
		RefundsHandler:      payments.NewHandler(coordinator, logger),
		HistoryHandler:      therapists.NewHistoryHandler(sqlDB, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthJWTSecret:       cfg.AuthJWTSecret,
		CORSAllowedOrigins:  cfg.CORSOrigins(),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopRelay()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
