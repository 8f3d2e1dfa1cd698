package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds engine configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	OTLPEndpoint string
	PprofUser    string
	PprofPass    string

	// EvaluateRateLimit is the ulule/limiter formatted rate for the public
	// evaluate endpoint, e.g. "30-M".
	EvaluateRateLimit string

	// CouponPerCustomerDefault applies when a coupon row leaves its
	// per-customer limit unset. Zero means unlimited.
	CouponPerCustomerDefault int32

	// SettleMaxRetry bounds asynq redeliveries of the settlement task.
	SettleMaxRetry int

	CatalogCacheTTL   time.Duration
	AggregateCacheTTL time.Duration
	IdempotencyTTL    time.Duration
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                   valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                     valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:              k.String("DATABASE_URL"),
		RedisURL:                 k.String("REDIS_URL"),
		JWTSecret:                k.String("JWT_SECRET"),
		CORSAllowedOrigins:       splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		OTLPEndpoint:             k.String("OTLP_ENDPOINT"),
		PprofUser:                k.String("PPROF_USER"),
		PprofPass:                k.String("PPROF_PASS"),
		EvaluateRateLimit:        valueOrDefault(k.String("EVALUATE_RATE_LIMIT"), "30-M"),
		CouponPerCustomerDefault: int32(k.Int("PROMO_COUPON_PER_CUSTOMER_DEFAULT")),
		SettleMaxRetry:           intOrDefault(k.Int("SETTLE_MAX_RETRY"), 10),
		CatalogCacheTTL:          parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		AggregateCacheTTL:        parseDuration(k.String("AGGREGATE_CACHE_TTL"), "1m"),
		IdempotencyTTL:           parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// HTTPAddr returns the address the HTTP server binds to.
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
		if trimmed := strings.TrimSpace(part); trimmed != "" {
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

func intOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
