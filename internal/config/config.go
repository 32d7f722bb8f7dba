package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Backend the widget and admin console talk to.
	BackendBaseURL string
	RequestTimeout time.Duration

	// Widget behavior
	Lang             string
	Page             string
	PollOpenEvery    time.Duration
	PollClosedEvery  time.Duration
	RevealFramePace  time.Duration
	RevealChunkRunes int

	// Client-state persistence
	StateDriver   string // "memory", "file" or "redis"
	StateFilePath string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Admin console
	AdminToken     string
	AdminJWTSecret string
	AdminPollEvery time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),

		Lang:             getEnv("WIDGET_LANG", "az"),
		Page:             getEnv("WIDGET_PAGE", "/"),
		PollOpenEvery:    getEnvAsDuration("POLL_OPEN_INTERVAL", 3500*time.Millisecond),
		PollClosedEvery:  getEnvAsDuration("POLL_CLOSED_INTERVAL", 9*time.Second),
		RevealFramePace:  getEnvAsDuration("REVEAL_FRAME_PACE", 30*time.Millisecond),
		RevealChunkRunes: getEnvAsInt("REVEAL_CHUNK_RUNES", 3),

		StateDriver:   getEnv("STATE_DRIVER", "file"),
		StateFilePath: getEnv("STATE_FILE_PATH", ".webchat-state.json"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminPollEvery: getEnvAsDuration("ADMIN_POLL_INTERVAL", 5*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
