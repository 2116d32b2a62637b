package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Comparison settings. ExchangeRate and DefaultImportMarkup are supplied
	// by configuration, never computed; PriceTolerance is the absolute epsilon
	// within which two quoted prices count as equal.
	ExchangeRate        float64
	DefaultImportMarkup float64
	PriceTolerance      float64

	SessionTTL        time.Duration
	IdempotencyTTL    time.Duration
	InventoryCacheTTL time.Duration

	InventoryDefaultPage  int
	InventoryDefaultLimit int
	InventoryMaxLimit     int

	SupplierAPIBaseURL string
	SupplierAPIKey     string
	OutboundTimeout    time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent int

	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	QueueRedisPrefix string
	QueueMaxAttempts int
	SyncInterval     time.Duration

	RateLimitPerMinute int

	LockTTL          time.Duration
	LockRetryBackoff time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		ExchangeRate:        parseFloat(k.String("EXCHANGE_RATE"), 3.7),
		DefaultImportMarkup: parseFloat(k.String("DEFAULT_IMPORT_MARKUP"), 1.35),
		PriceTolerance:      parseFloat(k.String("PRICE_TOLERANCE"), 0.01),

		SessionTTL:        parseDuration(k.String("COMPARISON_SESSION_TTL"), "12h"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		InventoryCacheTTL: parseDuration(k.String("INVENTORY_CACHE_TTL"), "5m"),

		InventoryDefaultPage:  parseInt(k.String("INVENTORY_DEFAULT_PAGE"), 1),
		InventoryDefaultLimit: parseInt(k.String("INVENTORY_DEFAULT_LIMIT"), 20),
		InventoryMaxLimit:     parseInt(k.String("INVENTORY_MAX_LIMIT"), 100),

		SupplierAPIBaseURL: strings.TrimSpace(k.String("SUPPLIER_API_BASE_URL")),
		SupplierAPIKey:     strings.TrimSpace(k.String("SUPPLIER_API_KEY")),
		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "10s"),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: parseInt(k.String("RETRY_JITTER_PERCENT"), 20),

		CircuitMinRequests: parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate: parseFloat(k.String("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		QueueRedisPrefix: valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "procure"),
		QueueMaxAttempts: parseInt(k.String("QUEUE_MAX_ATTEMPTS"), 10),
		SyncInterval:     parseDuration(k.String("SYNC_INTERVAL"), "2s"),

		RateLimitPerMinute: parseInt(k.String("RATE_LIMIT_PER_MINUTE"), 300),

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ExchangeRate <= 0 {
		return nil, errors.New("EXCHANGE_RATE must be positive")
	}
	if cfg.DefaultImportMarkup < 1.0 || cfg.DefaultImportMarkup > 2.0 {
		return nil, errors.New("DEFAULT_IMPORT_MARKUP must be within [1.00, 2.00]")
	}
	if cfg.PriceTolerance <= 0 {
		return nil, errors.New("PRICE_TOLERANCE must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
