// Package config builds the process configuration from environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "infrastat/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Database locates PostgreSQL.
type Database struct {
	URL string
}

// Redis locates the shared idempotency store. Empty URL disables it and the
// service falls back to in-process memory.
type Redis struct {
	URL string
}

// Kafka locates the lifecycle event bus. Empty brokers disable publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Portal locates the statistics portal and its credentials.
type Portal struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Submit shapes the submission retry policy.
type Submit struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	IdempotencyTTL time.Duration
	Disabled       bool
}

// Refdata locates the reference codesets and their refresh policy.
type Refdata struct {
	CommodityCodesPath string
	CountryCodesPath   string
	RefreshInterval    time.Duration
	FailureBackoff     time.Duration
}

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Kafka    Kafka
	Portal   Portal
	Submit   Submit
	Refdata  Refdata
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("INFRASTAT_ADDR", ":8080"),
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envString("KAFKA_TOPIC", "infrastat.lifecycle"),
		},
		Portal: Portal{
			BaseURL:  os.Getenv("PORTAL_BASE_URL"),
			Username: os.Getenv("PORTAL_USERNAME"),
			Password: os.Getenv("PORTAL_PASSWORD"),
			Timeout:  envDuration("PORTAL_TIMEOUT", 30*time.Second),
		},
		Submit: Submit{
			MaxAttempts:    envInt("SUBMIT_MAX_ATTEMPTS", 3),
			RetryDelay:     envDuration("SUBMIT_RETRY_DELAY", 10*time.Second),
			IdempotencyTTL: envDuration("SUBMIT_IDEMPOTENCY_TTL", 24*time.Hour),
			Disabled:       envBool("SUBMIT_DISABLED", false),
		},
		Refdata: Refdata{
			CommodityCodesPath: os.Getenv("REFDATA_COMMODITY_CODES"),
			CountryCodesPath:   os.Getenv("REFDATA_COUNTRY_CODES"),
			RefreshInterval:    envDuration("REFDATA_REFRESH_INTERVAL", time.Hour),
			FailureBackoff:     envDuration("REFDATA_FAILURE_BACKOFF", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(v, ","))
}
