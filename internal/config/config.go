package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Backend names accepted in LEDGER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Ledger store
	LedgerBackend string
	SQLitePath    string
	RedisURL      string
	DatabaseURL   string

	// Chat
	Namespace   string
	KeystoreDir string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on a missing store DSN.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LedgerBackend: getEnv("LEDGER_BACKEND", BackendSQLite),
		SQLitePath:    os.Getenv("SQLITE_PATH"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Namespace:     getEnv("NAMESPACE", "global"),
		KeystoreDir:   os.Getenv("KEYSTORE_DIR"),
	}

	if cfg.Env == "production" {
		switch cfg.LedgerBackend {
		case BackendRedis:
			if cfg.RedisURL == "" {
				panic("REDIS_URL is required in production with the redis backend")
			}
		case BackendPostgres:
			if cfg.DatabaseURL == "" {
				panic("DATABASE_URL is required in production with the postgres backend")
			}
		case BackendMemory:
			panic("the memory backend is not durable and cannot be used in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
