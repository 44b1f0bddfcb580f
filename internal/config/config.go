// Package config centralises configuration parsing for the ledger service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	MirrorSinkRedis = "redis"
	MirrorSinkKafka = "kafka"
)

type StorageConfig struct {
	Driver         string `yaml:"driver"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	SQLitePath     string `yaml:"sqlite_path"`
	ReadReplicaURL string `yaml:"read_replica_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MirrorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Sink         string        `yaml:"sink"`
	Stream       string        `yaml:"stream"`
	KafkaBrokers []string      `yaml:"kafka_brokers"`
	KafkaTopic   string        `yaml:"kafka_topic"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

type SyncConfig struct {
	TokenTTL          time.Duration `yaml:"token_ttl"`
	Delay             time.Duration `yaml:"delay"`
	Timeout           time.Duration `yaml:"timeout"`
	LookbackDays      int           `yaml:"lookback_days"`
	ProviderRateLimit float64       `yaml:"provider_rate_limit"`
	ScheduleInterval  time.Duration `yaml:"schedule_interval"`
	ScheduleWorkers   int           `yaml:"schedule_workers"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config captures runtime configuration values for the ledger service.
type Config struct {
	AppEnv       string        `yaml:"app_env"`
	DemoUserID   string        `yaml:"demo_user_id"`
	JWTSecret    string        `yaml:"jwt_secret"`
	UndoWindow   time.Duration `yaml:"undo_window"`
	CacheBackend string        `yaml:"cache_backend"`
	StatsTTL     time.Duration `yaml:"stats_ttl"`

	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Sync    SyncConfig    `yaml:"sync"`
}

// Defaults returns a Config suitable for local development against SQLite.
func Defaults() Config {
	return Config{
		AppEnv:       "development",
		DemoUserID:   "demo-user",
		UndoWindow:   60 * time.Second,
		CacheBackend: CacheBackendMemory,
		StatsTTL:     30 * time.Second,
		HTTP: HTTPConfig{
			Address:        ":8080",
			RateLimitRPS:   5,
			RateLimitBurst: 20,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Storage: StorageConfig{
			Driver:     StorageDriverSQLite,
			SQLitePath: "ledger.db",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Mirror: MirrorConfig{
			Sink:         MirrorSinkRedis,
			Stream:       "ledger:activities",
			KafkaTopic:   "ledger_activities",
			PollInterval: 2 * time.Second,
			BatchSize:    25,
			MaxAttempts:  5,
		},
		Sync: SyncConfig{
			TokenTTL:          6 * time.Hour,
			Delay:             1500 * time.Millisecond,
			Timeout:           30 * time.Second,
			LookbackDays:      7,
			ProviderRateLimit: 10,
			ScheduleWorkers:   4,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an optional .env file and
// finally environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage driver %q requires POSTGRES_DSN", c.Storage.Driver)
		}
	case StorageDriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage driver %q requires SQLITE_PATH", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.Mirror.Enabled {
		switch c.Mirror.Sink {
		case MirrorSinkRedis:
		case MirrorSinkKafka:
			if len(c.Mirror.KafkaBrokers) == 0 {
				return fmt.Errorf("mirror sink kafka requires KAFKA_BROKERS")
			}
		default:
			return fmt.Errorf("unknown mirror sink %q", c.Mirror.Sink)
		}
	}

	if c.UndoWindow <= 0 {
		return fmt.Errorf("undo window must be positive")
	}
	if c.DemoUserID == "" {
		return fmt.Errorf("DEMO_USER_ID must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.DemoUserID = getEnv("DEMO_USER_ID", cfg.DemoUserID)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.UndoWindow = getDurationEnv("UNDO_WINDOW", cfg.UndoWindow)
	cfg.CacheBackend = getEnv("CACHE_BACKEND", cfg.CacheBackend)
	cfg.StatsTTL = getDurationEnv("STATS_TTL", cfg.StatsTTL)

	cfg.HTTP.Address = getEnv("HTTP_ADDRESS", cfg.HTTP.Address)
	cfg.HTTP.RateLimitRPS = getFloatEnv("RATE_LIMIT_RPS", cfg.HTTP.RateLimitRPS)
	cfg.HTTP.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", cfg.HTTP.RateLimitBurst)
	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && origins != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(origins)
	}

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.PostgresDSN = getEnv("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.ReadReplicaURL = getEnv("READ_REPLICA_URL", cfg.Storage.ReadReplicaURL)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getIntEnv("REDIS_DB", cfg.Redis.DB)

	cfg.Mirror.Enabled = getBoolEnv("CLOUD_SYNC_ENABLED", cfg.Mirror.Enabled)
	cfg.Mirror.Sink = getEnv("MIRROR_SINK", cfg.Mirror.Sink)
	cfg.Mirror.Stream = getEnv("MIRROR_STREAM", cfg.Mirror.Stream)
	cfg.Mirror.KafkaTopic = getEnv("MIRROR_KAFKA_TOPIC", cfg.Mirror.KafkaTopic)
	if brokers, ok := os.LookupEnv("KAFKA_BROKERS"); ok && brokers != "" {
		cfg.Mirror.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.Mirror.PollInterval = getDurationEnv("MIRROR_POLL_INTERVAL", cfg.Mirror.PollInterval)
	cfg.Mirror.BatchSize = getIntEnv("MIRROR_BATCH_SIZE", cfg.Mirror.BatchSize)
	cfg.Mirror.MaxAttempts = getIntEnv("MIRROR_MAX_ATTEMPTS", cfg.Mirror.MaxAttempts)

	cfg.Sync.TokenTTL = getDurationEnv("SYNC_TOKEN_TTL", cfg.Sync.TokenTTL)
	cfg.Sync.Delay = getDurationEnv("SYNC_DELAY", cfg.Sync.Delay)
	cfg.Sync.Timeout = getDurationEnv("SYNC_TIMEOUT", cfg.Sync.Timeout)
	cfg.Sync.LookbackDays = getIntEnv("SYNC_LOOKBACK_DAYS", cfg.Sync.LookbackDays)
	cfg.Sync.ProviderRateLimit = getFloatEnv("SYNC_PROVIDER_RATE_LIMIT", cfg.Sync.ProviderRateLimit)
	cfg.Sync.ScheduleInterval = getDurationEnv("SYNC_SCHEDULE_INTERVAL", cfg.Sync.ScheduleInterval)
	cfg.Sync.ScheduleWorkers = getIntEnv("SYNC_SCHEDULE_WORKERS", cfg.Sync.ScheduleWorkers)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
