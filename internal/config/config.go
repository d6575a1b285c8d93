package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@resumemailer.app"`

	// Links in rendered emails are built on top of this.
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`

	// ----------------------------
	// Delivery
	// ----------------------------
	RateLimit     int `envconfig:"RATE_LIMIT" default:"10"`
	RetryAttempts int `envconfig:"RETRY_ATTEMPTS" default:"3"`

	// ----------------------------
	// Batch processor
	// ----------------------------
	WorkerCount          int           `envconfig:"WORKER_COUNT" default:"1"`
	BatchSize            int           `envconfig:"BATCH_SIZE" default:"20"`
	StaleProcessingAfter time.Duration `envconfig:"STALE_PROCESSING_AFTER" default:"30m"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort    string `envconfig:"API_PORT" default:"8080"`
	CronSecret string `envconfig:"CRON_SECRET" default:""`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Logging
	// ----------------------------
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogFile   string `envconfig:"LOG_FILE" default:""`

	// ----------------------------
	// Database
	// ----------------------------
	// Empty DatabaseURL runs against the in-memory store.
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// ----------------------------
	// Redis
	// ----------------------------
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.StaleProcessingAfter < 0 {
		return fmt.Errorf("STALE_PROCESSING_AFTER must not be negative")
	}
	return nil
}
