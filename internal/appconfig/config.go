package appconfig

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors config.yaml. File values only seed environment defaults;
// the environment stays the runtime source of truth.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Broker        BrokerConfig        `yaml:"broker"`
	Observability ObservabilityConfig `yaml:"observability"`
	Redis         RedisConfig         `yaml:"redis"`
	Postgres      PostgresConfig      `yaml:"postgres"`
}

type ObservabilityConfig struct {
	ServiceName string `yaml:"service_name"`
	InstanceID  string `yaml:"instance_id"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

type MailConfig struct {
	SendgridKey string `yaml:"sendgrid_key"`
	FromName    string `yaml:"from_name"`
	FromEmail   string `yaml:"from_email"`
}

type APIConfig struct {
	Port               int    `yaml:"port"`
	GinMode            string `yaml:"gin_mode"`
	DatabaseURL        string `yaml:"database_url"`
	RedisURL           string `yaml:"redis_url"`
	BaseURL            string `yaml:"base_url"`
	JWTSecret          string `yaml:"jwt_secret"`
	JWTExpireHours     int    `yaml:"jwt_expire_hours"`
	TokenSecret        string `yaml:"token_secret"`
	MetricsPort        int    `yaml:"metrics_port"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`

	MinIO MinIOConfig `yaml:"minio"`
}

type BrokerConfig struct {
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	BaseURL     string `yaml:"base_url"`
	TokenSecret string `yaml:"token_secret"`
	MetricsPort int    `yaml:"metrics_port"`

	ApprovalPollSec     int `yaml:"approval_poll_sec"`
	MarkingPollSec      int `yaml:"marking_poll_sec"`
	ConfirmationPollSec int `yaml:"confirmation_poll_sec"`
	StartupGraceSec     int `yaml:"startup_grace_sec"`

	ConfirmationExpiryHours int `yaml:"confirmation_expiry_hours"`

	AnswerKeyCacheMax    int `yaml:"answer_key_cache_max"`
	AnswerKeyCacheTTLSec int `yaml:"answer_key_cache_ttl_sec"`

	MinIO MinIOConfig `yaml:"minio"`
	Mail  MailConfig  `yaml:"mail"`
}

type RedisConfig struct {
	PoolSize       int `yaml:"pool_size"`
	MinIdleConns   int `yaml:"min_idle_conns"`
	DialTimeoutMs  int `yaml:"dial_timeout_ms"`
	ReadTimeoutMs  int `yaml:"read_timeout_ms"`
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

type PostgresConfig struct {
	MaxConns           int `yaml:"max_conns"`
	MinConns           int `yaml:"min_conns"`
	MaxConnLifetimeMin int `yaml:"max_conn_lifetime_min"`
	MaxConnIdleMin     int `yaml:"max_conn_idle_min"`
}

// Load reads config.yaml from TUQ_CONFIG, the working directory, or /app.
// A missing file is not an error.
func Load() (*Config, string, error) {
	candidates := []string{}
	if p := strings.TrimSpace(os.Getenv("TUQ_CONFIG")); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, "config.yaml", "/app/config.yaml")

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, path, err
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, path, err
		}
		return &cfg, path, nil
	}
	return nil, "", nil
}

// SetEnvIfEmpty sets key to value when the env var is unset/empty and the
// value is non-empty.
func SetEnvIfEmpty(key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if existing, ok := os.LookupEnv(key); ok && strings.TrimSpace(existing) != "" {
		return
	}
	os.Setenv(key, value)
}

func SetEnvIfEmptyInt(key string, value int) {
	if value <= 0 {
		return
	}
	SetEnvIfEmpty(key, strconv.Itoa(value))
}
