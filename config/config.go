// Package config loads NearDoer settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is used when JWT_SECRET_KEY is unset. Not for production.
const DefaultJWTSecret = "neardoer-development-secret-change-me"

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Redis    RedisConfig
	Session  SessionConfig
	Limits   LimitsConfig
	LogLevel string
	// ShutdownTimeout bounds graceful shutdown of every module.
	ShutdownTimeout time.Duration
}

type HTTPConfig struct {
	Port int
}

// Addr returns the listen address for Port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// StoreConfig selects the task backend and where profiles live.
type StoreConfig struct {
	Backend     string
	TaskDBPath  string
	UserDBPath  string
	DatabaseURL string
	NATSURL     string
	Bucket      string
}

// RedisConfig is optional: an empty Addr disables caching and rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
}

type LimitsConfig struct {
	AcceptLimit   int
	AcceptWindow  time.Duration
	ProfileLimit  int
	ProfileWindow time.Duration
}

// Load reads configuration from the environment after loading .env, if any.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Port: getEnvInt("HTTP_PORT", 3000),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("TASK_STORE", "sqlite")),
			TaskDBPath:  getEnv("TASK_DB_PATH", "tasks.db"),
			UserDBPath:  getEnv("USER_DB_PATH", "users.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Bucket:      getEnv("TASK_KV_BUCKET", "neardoer_tasks"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),
		},
		Session: SessionConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", DefaultJWTSecret),
			TTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Limits: LimitsConfig{
			AcceptLimit:   getEnvInt("ACCEPT_RATE_LIMIT", 10),
			AcceptWindow:  getEnvDuration("ACCEPT_RATE_WINDOW", time.Minute),
			ProfileLimit:  getEnvInt("PROFILE_RATE_LIMIT", 20),
			ProfileWindow: getEnvDuration("PROFILE_RATE_WINDOW", time.Minute),
		},
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "sqlite", "memory", "jetstream":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TASK_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown TASK_STORE %q, want sqlite, postgres, jetstream or memory", c.Store.Backend)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", c.HTTP.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration value for %s: %q, using default %s", key, value, defaultValue)
	return defaultValue
}
