package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that override config.yaml
const (
	EnvBackendURL  = "CODEQUEST_BACKEND_URL"
	EnvUserID      = "CODEQUEST_USER_ID"
	EnvFilterStore = "CODEQUEST_FILTER_STORE"
	EnvRedisAddr   = "CODEQUEST_REDIS_ADDR"
	EnvPostgresDSN = "CODEQUEST_POSTGRES_DSN"
	EnvRabbitMQURL = "CODEQUEST_RABBITMQ_URL"
	EnvEvents      = "CODEQUEST_EVENTS"
	EnvLogLevel    = "CODEQUEST_LOG_LEVEL"
	EnvPort        = "CODEQUEST_PORT"
)

// applyEnv overlays environment variables on cfg
func applyEnv(cfg *LocalConfig) {
	cfg.Backend.URL = getEnv(EnvBackendURL, cfg.Backend.URL)
	cfg.Backend.UserID = getEnvInt64(EnvUserID, cfg.Backend.UserID)
	cfg.Filters.Store = strings.ToLower(getEnv(EnvFilterStore, cfg.Filters.Store))
	cfg.Filters.RedisAddr = getEnv(EnvRedisAddr, cfg.Filters.RedisAddr)
	cfg.Filters.PostgresDSN = getEnv(EnvPostgresDSN, cfg.Filters.PostgresDSN)
	cfg.Events.RabbitMQURL = getEnv(EnvRabbitMQURL, cfg.Events.RabbitMQURL)
	cfg.Events.Enabled = getEnvBool(EnvEvents, cfg.Events.Enabled)
	cfg.Daemon.LogLevel = getEnv(EnvLogLevel, cfg.Daemon.LogLevel)
	cfg.Daemon.Port = getEnvInt(EnvPort, cfg.Daemon.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
