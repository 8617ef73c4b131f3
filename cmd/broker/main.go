package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/iamOgunyinka/sproot/internal/appconfig"
	"github.com/iamOgunyinka/sproot/internal/mail"
	"github.com/iamOgunyinka/sproot/internal/queue"
	"github.com/iamOgunyinka/sproot/internal/repository"
	"github.com/iamOgunyinka/sproot/internal/token"
	"github.com/iamOgunyinka/sproot/internal/worker"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/iamOgunyinka/sproot/pkg/observability"
)

func seedEnvFromFile() {
	cfgFile, cfgPath, err := appconfig.Load()
	if err != nil {
		observability.Fatal("loading config file failed", "path", cfgPath, "error", err)
	}
	if cfgPath != "" {
		slog.Info("config file loaded", "path", cfgPath)
	}
	if cfgFile == nil {
		return
	}

	// File values only seed env defaults; the environment stays the
	// runtime source of truth.
	b := cfgFile.Broker
	appconfig.SetEnvIfEmpty("REDIS_URL", b.RedisURL)
	appconfig.SetEnvIfEmpty("DATABASE_URL", b.DatabaseURL)
	appconfig.SetEnvIfEmpty("BASE_URL", b.BaseURL)
	appconfig.SetEnvIfEmpty("TOKEN_SECRET", b.TokenSecret)
	appconfig.SetEnvIfEmptyInt("METRICS_PORT", b.MetricsPort)

	appconfig.SetEnvIfEmptyInt("APPROVAL_POLL_SEC", b.ApprovalPollSec)
	appconfig.SetEnvIfEmptyInt("MARKING_POLL_SEC", b.MarkingPollSec)
	appconfig.SetEnvIfEmptyInt("CONFIRMATION_POLL_SEC", b.ConfirmationPollSec)
	appconfig.SetEnvIfEmptyInt("APPROVAL_STARTUP_GRACE_SEC", b.StartupGraceSec)
	appconfig.SetEnvIfEmptyInt("MARKING_STARTUP_GRACE_SEC", b.StartupGraceSec)
	appconfig.SetEnvIfEmptyInt("CONFIRMATION_EXPIRY_HOURS", b.ConfirmationExpiryHours)
	appconfig.SetEnvIfEmptyInt("ANSWER_KEY_CACHE_MAX", b.AnswerKeyCacheMax)
	appconfig.SetEnvIfEmptyInt("ANSWER_KEY_CACHE_TTL_SEC", b.AnswerKeyCacheTTLSec)

	appconfig.SetEnvIfEmpty("MINIO_ENDPOINT", b.MinIO.Endpoint)
	appconfig.SetEnvIfEmpty("MINIO_ACCESS_KEY", b.MinIO.AccessKey)
	appconfig.SetEnvIfEmpty("MINIO_SECRET_KEY", b.MinIO.SecretKey)
	appconfig.SetEnvIfEmpty("MINIO_BUCKET", b.MinIO.Bucket)

	appconfig.SetEnvIfEmpty("SENDGRID_API_KEY", b.Mail.SendgridKey)
	appconfig.SetEnvIfEmpty("MAIL_FROM_NAME", b.Mail.FromName)
	appconfig.SetEnvIfEmpty("MAIL_FROM_EMAIL", b.Mail.FromEmail)

	appconfig.SetEnvIfEmpty("SERVICE_NAME", cfgFile.Observability.ServiceName)
	appconfig.SetEnvIfEmpty("INSTANCE_ID", cfgFile.Observability.InstanceID)

	appconfig.SetEnvIfEmptyInt("REDIS_POOL_SIZE", cfgFile.Redis.PoolSize)
	appconfig.SetEnvIfEmptyInt("REDIS_MIN_IDLE_CONNS", cfgFile.Redis.MinIdleConns)
	appconfig.SetEnvIfEmptyInt("PG_MAX_CONNS", cfgFile.Postgres.MaxConns)
	appconfig.SetEnvIfEmptyInt("PG_MIN_CONNS", cfgFile.Postgres.MinConns)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	seedEnvFromFile()

	cfg, err := worker.LoadConfig()
	if err != nil {
		observability.Fatal("broker configuration invalid", "error", err)
	}

	serviceName := envOr("SERVICE_NAME", "tuq-broker")
	instanceID := envOr("INSTANCE_ID", "broker-1")
	worker.InitMetrics(serviceName, instanceID)
	observability.StartMetricsServer(cfg.MetricsAddr)

	ctx := context.Background()

	slog.Info("connecting to redis", "addr", cfg.RedisURL)
	rdb := repository.NewRedisClient(cfg.RedisURL)
	if err := rdb.Ping(ctx); err != nil {
		observability.Fatal("redis connection failed", "error", err)
	}
	defer rdb.Close()

	slog.Info("connecting to postgres")
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		observability.Fatal("postgres connection failed", "error", err)
	}
	defer db.Close()

	blobs, err := repository.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket)
	if err != nil {
		observability.Fatal("minio client failed", "error", err)
	}

	signer, err := token.NewSigner(cfg.TokenSecret)
	if err != nil {
		observability.Fatal("token signer failed", "error", err)
	}

	var mailer mail.Mailer
	if cfg.SendgridKey != "" {
		mailer = mail.NewSendGridMailer(cfg.SendgridKey, cfg.MailFromEmail, cfg.MailFromName)
	} else {
		slog.Warn("SENDGRID_API_KEY not set, using console mailer")
		mailer = mail.NewConsoleMailer()
	}

	store := queue.NewStore(rdb)
	answerKeys := worker.NewAnswerKeyManager(blobs, cfg.AnswerKeyCacheMax, cfg.AnswerKeyCacheTTL)
	clock := worker.NewRealClock()

	loops := []*worker.Loop{
		worker.NewLoop(store, worker.NewApprovalProcessor(db, store), worker.LoopConfig{
			Category:     "approval",
			PendingKey:   common.AdminRequestsKey,
			FailureKey:   common.AdminRequestFailsKey,
			PollInterval: cfg.ApprovalPollInterval,
			StartupGrace: cfg.ApprovalStartupGrace,
		}, clock),
		worker.NewLoop(store, worker.NewConfirmationProcessor(mailer, signer, cfg.BaseURL, cfg.ConfirmationExpiry), worker.LoopConfig{
			Category:     "confirmation",
			PendingKey:   common.PendingConfirmationEmailsKey,
			FailureKey:   common.FailedConfirmationEmailsKey,
			PollInterval: cfg.ConfirmationPollInterval,
			StartupGrace: cfg.ConfirmationStartupGrace,
			FailureValue: worker.ConfirmationFailureValue,
		}, clock),
		worker.NewLoop(store, worker.NewMarkingProcessor(db, answerKeys), worker.LoopConfig{
			Category:     "marking",
			PendingKey:   common.PendingPapersKey,
			FailureKey:   common.ErrorUnmarkedPapersKey,
			PollInterval: cfg.MarkingPollInterval,
			StartupGrace: cfg.MarkingStartupGrace,
		}, clock),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(l *worker.Loop) {
			defer wg.Done()
			if err := l.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("worker loop exited abnormally", "error", err)
			}
		}(loop)
	}
	slog.Info("broker started", "service", serviceName, "instance", instanceID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cancel()
	wg.Wait()
	slog.Info("broker stopped")
}
