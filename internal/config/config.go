// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// LLM settings
	GeminiAPIKey    string // Optional; analysis degrades to fallback text without it
	GenerativeModel string
	EmbeddingModel  string

	// Retrieval settings
	IndexPath     string // Path to the regulation vector index built by cmd/ingest
	RetrievalTopK int

	// Risk settings
	RiskThresholdHigh   float64
	RiskThresholdMedium float64

	// Rate limiting
	RateLimitRPM int

	// Tracing
	OTLPEndpoint string
}

// Defaults.
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultIndexPath       = "data/regulations.idx"
	DefaultRetrievalTopK   = 3
	DefaultRateLimitRPM    = 120
	DefaultThresholdHigh   = 1_000_000
	DefaultThresholdMedium = 500_000
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GenerativeModel:     getEnv("GENERATIVE_MODEL", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
		IndexPath:           getEnv("INDEX_PATH", DefaultIndexPath),
		RetrievalTopK:       int(getEnvInt64("RETRIEVAL_TOP_K", DefaultRetrievalTopK)),
		RiskThresholdHigh:   getEnvFloat("RISK_THRESHOLD_HIGH", DefaultThresholdHigh),
		RiskThresholdMedium: getEnvFloat("RISK_THRESHOLD_MEDIUM", DefaultThresholdMedium),
		RateLimitRPM:        int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	if c.RiskThresholdMedium >= c.RiskThresholdHigh {
		return fmt.Errorf("RISK_THRESHOLD_MEDIUM must be below RISK_THRESHOLD_HIGH")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
