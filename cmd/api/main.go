package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamOgunyinka/sproot/internal/api"
	"github.com/iamOgunyinka/sproot/internal/appconfig"
	"github.com/iamOgunyinka/sproot/internal/queue"
	"github.com/iamOgunyinka/sproot/internal/repository"
	"github.com/iamOgunyinka/sproot/internal/token"
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

	a := cfgFile.API
	appconfig.SetEnvIfEmptyInt("API_PORT", a.Port)
	appconfig.SetEnvIfEmpty("GIN_MODE", a.GinMode)
	appconfig.SetEnvIfEmpty("DATABASE_URL", a.DatabaseURL)
	appconfig.SetEnvIfEmpty("REDIS_URL", a.RedisURL)
	appconfig.SetEnvIfEmpty("BASE_URL", a.BaseURL)
	appconfig.SetEnvIfEmpty("TOKEN_SECRET", a.TokenSecret)
	appconfig.SetEnvIfEmptyInt("JWT_EXPIRE_HOURS", a.JWTExpireHours)
	appconfig.SetEnvIfEmptyInt("API_METRICS_PORT", a.MetricsPort)
	appconfig.SetEnvIfEmptyInt("SHUTDOWN_TIMEOUT_SEC", a.ShutdownTimeoutSec)

	appconfig.SetEnvIfEmpty("MINIO_ENDPOINT", a.MinIO.Endpoint)
	appconfig.SetEnvIfEmpty("MINIO_ACCESS_KEY", a.MinIO.AccessKey)
	appconfig.SetEnvIfEmpty("MINIO_SECRET_KEY", a.MinIO.SecretKey)
	appconfig.SetEnvIfEmpty("MINIO_BUCKET", a.MinIO.Bucket)

	appconfig.SetEnvIfEmpty("SERVICE_NAME", cfgFile.Observability.ServiceName)
	appconfig.SetEnvIfEmpty("INSTANCE_ID", cfgFile.Observability.InstanceID)

	appconfig.SetEnvIfEmptyInt("REDIS_POOL_SIZE", cfgFile.Redis.PoolSize)
	appconfig.SetEnvIfEmptyInt("PG_MAX_CONNS", cfgFile.Postgres.MaxConns)
	appconfig.SetEnvIfEmptyInt("PG_MIN_CONNS", cfgFile.Postgres.MinConns)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func main() {
	seedEnvFromFile()

	redisURL := os.Getenv("REDIS_URL")
	databaseURL := os.Getenv("DATABASE_URL")
	tokenSecret := os.Getenv("TOKEN_SECRET")
	if redisURL == "" || databaseURL == "" || tokenSecret == "" {
		observability.Fatal("REDIS_URL, DATABASE_URL and TOKEN_SECRET are required")
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	serviceName := envOr("SERVICE_NAME", "tuq-api")
	instanceID := envOr("INSTANCE_ID", "api-1")
	api.InitMetrics(serviceName, instanceID)
	observability.StartMetricsServer(fmt.Sprintf(":%d", envInt("API_METRICS_PORT", 9090)))

	ctx := context.Background()

	slog.Info("connecting to redis", "addr", redisURL)
	rdb := repository.NewRedisClient(redisURL)
	if err := rdb.Ping(ctx); err != nil {
		observability.Fatal("redis connection failed", "error", err)
	}
	defer rdb.Close()

	slog.Info("connecting to postgres")
	db, err := repository.NewPostgresDB(ctx, databaseURL)
	if err != nil {
		observability.Fatal("postgres connection failed", "error", err)
	}
	defer db.Close()

	blobs, err := repository.NewMinIOClient(
		os.Getenv("MINIO_ENDPOINT"),
		os.Getenv("MINIO_ACCESS_KEY"),
		os.Getenv("MINIO_SECRET_KEY"),
		envOr("MINIO_BUCKET", "tuq-objects"),
	)
	if err != nil {
		observability.Fatal("minio client failed", "error", err)
	}

	signer, err := token.NewSigner(tokenSecret)
	if err != nil {
		observability.Fatal("token signer failed", "error", err)
	}

	sessionTTL := time.Duration(envInt("JWT_EXPIRE_HOURS", 24)) * time.Hour
	handler := api.NewHandler(db, queue.NewStore(rdb), signer, blobs, sessionTTL)
	router := api.NewRouter(handler, signer)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", envInt("API_PORT", 8080)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("api listening", "addr", srv.Addr, "service", serviceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("api server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(envInt("SHUTDOWN_TIMEOUT_SEC", 15))*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("api stopped")
}
