package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	LogLevel           string
	LogFormat          string
	MaxClientsPerTopic int
	CommentRate        float64
	CommentBurst       int
	SnapshotCacheTTL   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		RedisURL:  getEnv("REDIS_URL", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	var err error
	cfg.MaxClientsPerTopic, err = getEnvInt("MAX_CLIENTS_PER_TOPIC", 500)
	if err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerTopic < 1 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_TOPIC must be at least 1")
	}

	cfg.CommentRate, err = getEnvFloat("COMMENT_RATE", 5)
	if err != nil {
		return nil, err
	}
	if cfg.CommentRate <= 0 {
		return nil, fmt.Errorf("COMMENT_RATE must be positive")
	}

	cfg.CommentBurst, err = getEnvInt("COMMENT_BURST", 10)
	if err != nil {
		return nil, err
	}
	if cfg.CommentBurst < 1 {
		return nil, fmt.Errorf("COMMENT_BURST must be at least 1")
	}

	ttlSeconds, err := getEnvInt("SNAPSHOT_CACHE_TTL_SECONDS", 2)
	if err != nil {
		return nil, err
	}
	if ttlSeconds < 0 {
		return nil, fmt.Errorf("SNAPSHOT_CACHE_TTL_SECONDS must not be negative")
	}
	cfg.SnapshotCacheTTL = time.Duration(ttlSeconds) * time.Second

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return parsed, nil
}
