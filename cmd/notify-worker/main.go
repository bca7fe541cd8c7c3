package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/solace-health/solace-platform/cmd/mainconfig"
	appconfig "github.com/solace-health/solace-platform/internal/config"
	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/internal/notify"
	"github.com/solace-health/solace-platform/internal/therapists"
	notifierworker "github.com/solace-health/solace-platform/internal/worker/notifier"
	"github.com/solace-health/solace-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.NotifyQueueURL == "" {
		logger.Error("notify worker requires DATABASE_URL and NOTIFY_QUEUE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}

	queue := events.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
	contacts := therapists.NewRepository(pool)

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "ses":
		sender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger)
	}
	if sender == nil || isNilSender(sender) {
		logger.Warn("no email provider configured, using stub sender", "provider", cfg.EmailProvider)
		sender = notify.NewStubEmailSender(logger)
	}

	svc := notify.NewService(sender, contacts, logger)
	worker := notifierworker.New(queue, svc, logger)

	go worker.Run(ctx)
	logger.Info("notify worker started", "queue", cfg.NotifyQueueURL, "provider", cfg.EmailProvider)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("notify worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}

// isNilSender catches typed-nil senders returned by constructors when
// their provider credentials are missing.
func isNilSender(s notify.EmailSender) bool {
	switch v := s.(type) {
	case *notify.SendGridSender:
		return v == nil
	case *notify.SESSender:
		return v == nil
	default:
		return false
	}
}
