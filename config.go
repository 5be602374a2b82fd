package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GuilhermeXavier08/mythic/attestation"
	"github.com/GuilhermeXavier08/mythic/database"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Env  string
	Port string

	Postgres database.PostgresConfig
	RedisURL string

	JWTSecret     string
	EncryptionKey []byte

	KafkaBrokers []string
	KafkaTopic   string
	// SNS topic for checkout.completed fan-out
	SNSTopicARN string
	// When set, side effects go through SQS instead of the in-process queue.
	EventsQueueURL string
	EventQueueSize int
	EventWorkers   int

	MaxTxRetries   int
	RetryBackoff   time.Duration
	IdempotencyTTL time.Duration
	RequestTimeout time.Duration

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	CloudWatchMetrics  bool
	CloudWatchLogGroup string
}

type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		EncryptionKey:      []byte(os.Getenv("ENCRYPTION_KEY")),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("CHECKOUT_KAFKA_TOPIC", "checkout.completed"),
		SNSTopicARN:        os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		EventsQueueURL:     os.Getenv("CHECKOUT_EVENTS_QUEUE_URL"),
		EventQueueSize:     getEnvInt("EVENT_QUEUE_SIZE", 1024),
		EventWorkers:       getEnvInt("EVENT_WORKERS", 4),
		MaxTxRetries:       getEnvInt("CHECKOUT_TX_RETRIES", 3),
		RetryBackoff:       getEnvDuration("CHECKOUT_RETRY_BACKOFF", 50*time.Millisecond),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		CloudWatchMetrics:  os.Getenv("CLOUDWATCH_METRICS_ENABLED") == "true",
		CloudWatchLogGroup: os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}

	// Override credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(ctx); err == nil {
			applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if m, err := sm.GetSecretMap(ctx, "checkout/DB_CREDENTIALS"); err == nil {
		override(&cfg.Postgres.User, m["POSTGRES_USER"])
		override(&cfg.Postgres.Password, m["POSTGRES_PASSWORD"])
		override(&cfg.Postgres.DBName, m["POSTGRES_DB"])
		override(&cfg.Postgres.Host, m["POSTGRES_HOST"])
		override(&cfg.Postgres.Port, m["POSTGRES_PORT"])
	}
	if v, err := sm.GetSecret(ctx, "checkout/ENCRYPTION_KEY"); err == nil && v != "" {
		cfg.EncryptionKey = []byte(v)
	}
	if v, err := sm.GetSecret(ctx, "checkout/JWT_SECRET"); err == nil && v != "" {
		cfg.JWTSecret = v
	}
}

func (c *Config) validate() error {
	p := c.Postgres
	if p.User == "" || p.Password == "" || p.DBName == "" || p.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	if len(c.EncryptionKey) != attestation.KeySize {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly %d bytes", attestation.KeySize)
	}
	if c.MaxTxRetries < 0 {
		return fmt.Errorf("CHECKOUT_TX_RETRIES must not be negative")
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
