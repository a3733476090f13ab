package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Upload   UploadConfig
	Catalog  CatalogConfig
	Lock     LockConfig
	Redis    RedisConfig
	Sync     SyncConfig

	SecretKey  string `env:"APP_SECRET_KEY,default=ChangeMe"`
	LogVerbose bool   `env:"APP_VERBOSE,default=0"`
	LogPretty  bool   `env:"APP_PRETTY,default=0"`
}

type ServerConfig struct {
	Listen       string        `env:"RUN_ADDRESS,default=localhost:8088"`
	TimeoutRead  time.Duration `env:"SERVER_TIMEOUT_READ,default=15s"`
	TimeoutWrite time.Duration `env:"SERVER_TIMEOUT_WRITE,default=60s"`
	TimeoutIdle  time.Duration `env:"SERVER_TIMEOUT_IDLE,default=1m"`
}

type DatabaseConfig struct {
	DSN string `env:"DATABASE_URI"`
}

type GatewayConfig struct {
	URL             string        `env:"INDOTEL_URL,default=https://apiindotel.mesinr1.com/V1"`
	MMID            string        `env:"INDOTEL_MMID"`
	Password        string        `env:"INDOTEL_PASSWORD"`
	Timeout         time.Duration `env:"INDOTEL_TIMEOUT,default=30s"`
	BreakerFailures uint32        `env:"INDOTEL_BREAKER_FAILURES,default=5"`
	BreakerOpenFor  time.Duration `env:"INDOTEL_BREAKER_OPEN_FOR,default=30s"`
}

// Configured reports whether all provider credentials are set.
func (c GatewayConfig) Configured() bool {
	return c.URL != "" && c.MMID != "" && c.Password != ""
}

const (
	UploadBackendLocal = "local"
	UploadBackendS3    = "s3"
)

type UploadConfig struct {
	Backend   string `env:"UPLOAD_BACKEND,default=local"`
	Dir       string `env:"UPLOAD_DIR,default=uploads"`
	URLPrefix string `env:"UPLOAD_URL_PREFIX,default=/uploads/"`
	MaxBytes  int64  `env:"UPLOAD_MAX_BYTES,default=5242880"`
	S3Bucket  string `env:"UPLOAD_S3_BUCKET"`
	S3Region  string `env:"AWS_REGION,default=ap-southeast-1"`
}

type CatalogConfig struct {
	File         string `env:"CATALOG_FILE"`
	Remote       bool   `env:"CATALOG_REMOTE,default=0"`
	MockFallback bool   `env:"CATALOG_MOCK_FALLBACK,default=0"`
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type LockConfig struct {
	Backend string        `env:"LOCK_BACKEND,default=memory"`
	TTL     time.Duration `env:"LOCK_TTL,default=2m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
}

type SyncConfig struct {
	Enabled     bool          `env:"SYNC_ENABLED,default=1"`
	Interval    time.Duration `env:"SYNC_INTERVAL,default=1m"`
	Workers     int           `env:"SYNC_WORKERS,default=2"`
	RetrySettle bool          `env:"SYNC_RETRY_SETTLE,default=1"`
	MaxAttempts int           `env:"SYNC_MAX_ATTEMPTS,default=5"`
}

// New config constructor
func New() Config {
	return Config{}
}

// LoadEnv reads the environment and a .env file (if exists)
func (cfg *Config) LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env load: %w", err)
	}

	if err := envdecode.StrictDecode(cfg); err != nil {
		return fmt.Errorf("env decode: %w", err)
	}

	return cfg.Validate()
}

// Load config from environment and from .env file (if exists) and from flags
func (cfg *Config) Load() error {
	if err := cfg.LoadEnv(); err != nil {
		return err
	}

	pflag.StringVarP(&cfg.Server.Listen, "listen-addr", "a", cfg.Server.Listen, "Server address to listen on")
	pflag.StringVarP(&cfg.Database.DSN, "database-uri", "d", cfg.Database.DSN, "Database URI")
	pflag.StringVarP(&cfg.Gateway.URL, "indotel-url", "r", cfg.Gateway.URL, "Indotel base URL")
	pflag.StringVarP(&cfg.Catalog.File, "catalog", "c", cfg.Catalog.File, "Catalog YAML file")
	pflag.BoolVarP(&cfg.LogVerbose, "verbose", "v", cfg.LogVerbose, "Verbose output")
	pflag.BoolVarP(&cfg.LogPretty, "pretty", "p", cfg.LogPretty, "Pretty output")
	pflag.Parse()

	return cfg.Validate()
}

// Validate checks values envdecode cannot express
func (cfg *Config) Validate() error {
	switch cfg.Upload.Backend {
	case UploadBackendLocal:
	case UploadBackendS3:
		if cfg.Upload.S3Bucket == "" {
			return fmt.Errorf("UPLOAD_S3_BUCKET is required for the s3 upload backend")
		}
	default:
		return fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}

	switch cfg.Lock.Backend {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}

	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}

	return nil
}
