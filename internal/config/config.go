package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	StorageBackend string
	RedisURL       string
	SQLitePath     string
	DataDir        string
	SessionTTL     time.Duration

	ConditionCacheSize int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cacheSize, err := strconv.Atoi(getEnv("CONDITION_CACHE_SIZE", "500"))
	if err != nil || cacheSize <= 0 {
		return nil, fmt.Errorf("invalid CONDITION_CACHE_SIZE %q", os.Getenv("CONDITION_CACHE_SIZE"))
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis)),
		RedisURL:           getEnv("REDIS_URL", "localhost:6379"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/sessions.db"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		SessionTTL:         ttl,
		ConditionCacheSize: cacheSize,
	}

	switch cfg.StorageBackend {
	case BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q (supported: %s, %s)", cfg.StorageBackend, BackendRedis, BackendSQLite)
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
