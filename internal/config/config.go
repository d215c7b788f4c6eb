// Package config handles loading and validation of server configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret-change-in-production"

// Config holds all server configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Database
	DatabaseURL    string
	SeedSampleData bool

	// Backend project (object storage)
	SupabaseURL    string
	SupabaseKey    string
	StorageBackend string // "supabase" | "memory"
	EvidenceBucket string

	// Security
	JWTSecret      string
	SessionTTL     time.Duration
	AllowedOrigins []string
	RateLimitRPM   int

	// Redis (for rate limiting & record list cache)
	RedisURL       string
	RecordCacheTTL time.Duration
}

// Load reads configuration from environment variables.
// The backend project URL and anonymous key are always required.
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SeedSampleData: getEnvBool("SEED_SAMPLE_DATA", false),

		SupabaseURL:    strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey:    getEnv("SUPABASE_ANON_KEY", ""),
		StorageBackend: getEnv("STORAGE_BACKEND", "supabase"),
		EvidenceBucket: getEnv("EVIDENCE_BUCKET", "evidence-files"),

		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),

		RedisURL:       getEnv("REDIS_URL", ""),
		RecordCacheTTL: getEnvDuration("RECORD_CACHE_TTL", 30*time.Second),
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	switch cfg.StorageBackend {
	case "supabase", "memory":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be \"supabase\" or \"memory\", got %q", cfg.StorageBackend)
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
