// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible
// defaults — a struct holds the values, a Load function reads and
// validates them. Explicit, no framework.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// Editor token signing (one token per document session)
	JWTSecret string

	// Unicode font for export embedding. Empty string disables the fetch
	// and every export uses the built-in fallback.
	UnicodeFontURL   string
	FontFetchTimeout time.Duration

	// Upload limits
	MaxUploadSize int64 // bytes

	// Worker settings
	WorkerCount  int // Number of background export goroutines
	JobQueueSize int // Size of the in-memory job queue buffer

	// Session lifecycle
	SessionTTL time.Duration // idle time before a session is swept

	// Rate limiting
	RateLimit int // Requests per minute per client IP

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// Editor tokens
		JWTSecret: getEnv("JWT_SECRET", "dev-jwt-secret-change-in-production"),

		// Noto Sans JP covers the Japanese glyphs the export embeds by default.
		UnicodeFontURL:   getEnv("UNICODE_FONT_URL", "https://github.com/google/fonts/raw/main/ofl/notosansjp/NotoSansJP%5Bwght%5D.ttf"),
		FontFetchTimeout: getEnvDuration("FONT_FETCH_TIMEOUT", 30*time.Second),

		// Upload limit
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,

		// Worker defaults
		WorkerCount:  getEnvInt("WORKER_COUNT", 3),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),

		// Sessions
		SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),

		// Rate limiting
		RateLimit: getEnvInt("RATE_LIMIT", 120),

		// CORS — in production, set this to your frontend URL
		AllowedOrigins: []string{
			getEnv("CORS_ORIGIN", "http://localhost:5173"), // Vite dev server default
		},
	}

	// Security: the token secret MUST be set in production mode.
	// In release mode, we refuse to start with the default secret.
	if cfg.GinMode == "release" && cfg.JWTSecret == "dev-jwt-secret-change-in-production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}

// getEnvDuration reads a duration ("30s", "24h") with a fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := time.ParseDuration(str)
	if err != nil {
		return fallback
	}
	return val
}
