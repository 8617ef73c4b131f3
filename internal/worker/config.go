package worker

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultApprovalPollSec     = 60
	defaultMarkingPollSec      = 60
	defaultConfirmationPollSec = 600

	defaultApprovalGraceSec     = 10
	defaultMarkingGraceSec      = 10
	defaultConfirmationGraceSec = 5

	defaultConfirmationExpiryHours = 12

	defaultAnswerKeyCacheMax    = 128
	defaultAnswerKeyCacheTTLSec = 600
)

// Config is the broker process configuration, sourced from the
// environment (optionally seeded from config.yaml at startup).
type Config struct {
	RedisURL    string
	DatabaseURL string

	// BaseURL is the public address confirmation links point at.
	BaseURL     string
	TokenSecret string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string

	SendgridKey   string
	MailFromName  string
	MailFromEmail string

	ApprovalPollInterval     time.Duration
	MarkingPollInterval      time.Duration
	ConfirmationPollInterval time.Duration

	ApprovalStartupGrace     time.Duration
	MarkingStartupGrace      time.Duration
	ConfirmationStartupGrace time.Duration

	ConfirmationExpiry time.Duration

	AnswerKeyCacheMax int
	AnswerKeyCacheTTL time.Duration

	MetricsAddr string
}

// LoadConfig reads the broker configuration from the environment. It
// fails fast on missing connection strings or secrets rather than
// starting a worker that cannot do its job.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BaseURL:     os.Getenv("BASE_URL"),
		TokenSecret: os.Getenv("TOKEN_SECRET"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    envOr("MINIO_BUCKET", "tuq-objects"),

		SendgridKey:   os.Getenv("SENDGRID_API_KEY"),
		MailFromName:  envOr("MAIL_FROM_NAME", "Tuq"),
		MailFromEmail: envOr("MAIL_FROM_EMAIL", "no-reply@tuq.example.com"),

		ApprovalPollInterval:     secondsEnv("APPROVAL_POLL_SEC", defaultApprovalPollSec),
		MarkingPollInterval:      secondsEnv("MARKING_POLL_SEC", defaultMarkingPollSec),
		ConfirmationPollInterval: secondsEnv("CONFIRMATION_POLL_SEC", defaultConfirmationPollSec),

		ApprovalStartupGrace:     secondsEnv("APPROVAL_STARTUP_GRACE_SEC", defaultApprovalGraceSec),
		MarkingStartupGrace:      secondsEnv("MARKING_STARTUP_GRACE_SEC", defaultMarkingGraceSec),
		ConfirmationStartupGrace: secondsEnv("CONFIRMATION_STARTUP_GRACE_SEC", defaultConfirmationGraceSec),

		ConfirmationExpiry: time.Duration(intEnv("CONFIRMATION_EXPIRY_HOURS", defaultConfirmationExpiryHours)) * time.Hour,

		AnswerKeyCacheMax: intEnv("ANSWER_KEY_CACHE_MAX", defaultAnswerKeyCacheMax),
		AnswerKeyCacheTTL: secondsEnv("ANSWER_KEY_CACHE_TTL_SEC", defaultAnswerKeyCacheTTLSec),

		MetricsAddr: fmt.Sprintf(":%d", intEnv("METRICS_PORT", 9091)),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BASE_URL is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func secondsEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Second
}
