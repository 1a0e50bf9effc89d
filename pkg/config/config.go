package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const devSecret = "default-secret-key"

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	SecretKey   string
	// TokenScheme is "sealed" (default) or "jwt". Sealed tokens are encrypted
	// and reveal nothing. JWT tokens are only signed: the namespace travels in
	// clear in the subject claim, so anyone holding one can read which
	// namespace it opens.
	TokenScheme            string
	DataDir                string
	StoreBackend           string
	RedisURL               string
	DatabaseURL            string
	MaxBodyBytes           int64
	LogLevel               string
	CORSAllowedOrigins     []string
	RateLimitPerMinute     int
	StaticDir              string
	JanitorIntervalMinutes int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", getEnv("PORT", "3001")))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %w", err)
	}
	if maxBody <= 0 {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: must be positive")
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if rateLimit <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: must be positive")
	}

	janitorInterval, err := strconv.Atoi(getEnv("JANITOR_INTERVAL_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid JANITOR_INTERVAL_MINUTES: %w", err)
	}
	if janitorInterval <= 0 {
		return nil, fmt.Errorf("invalid JANITOR_INTERVAL_MINUTES: must be positive")
	}

	cfg := &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		ServerPort:             port,
		SecretKey:              os.Getenv("SECRET_KEY"),
		TokenScheme:            getEnv("TOKEN_SCHEME", "sealed"),
		DataDir:                getEnv("DATA_DIR", "./dbs"),
		StoreBackend:           getEnv("STORE_BACKEND", "sqlite"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		MaxBodyBytes:           maxBody,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins:     parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute:     rateLimit,
		StaticDir:              os.Getenv("STATIC_DIR"),
		JanitorIntervalMinutes: janitorInterval,
	}

	if cfg.SecretKey == "" {
		if cfg.Environment != "development" {
			return nil, fmt.Errorf("SECRET_KEY is required in %s", cfg.Environment)
		}
		cfg.SecretKey = devSecret
	}

	switch cfg.StoreBackend {
	case "sqlite", "redis":
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be sqlite or redis", cfg.StoreBackend)
	}

	switch cfg.TokenScheme {
	case "sealed", "jwt":
	default:
		return nil, fmt.Errorf("invalid TOKEN_SCHEME %q: must be sealed or jwt", cfg.TokenScheme)
	}

	return cfg, nil
}

// UsingDevSecret reports whether the built-in development secret is in effect
func (c *Config) UsingDevSecret() bool {
	return c.SecretKey == devSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
