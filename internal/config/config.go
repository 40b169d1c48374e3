package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Backend      BackendConfig
	Session      SessionConfig
	Redis        RedisConfig
	Log          LogConfig
	Availability AvailabilityConfig
	Search       SearchConfig
	Checkout     CheckoutConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// BackendConfig points at the external API that owns pricing, inventory and payments.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Secret      string
	MaxAge      int // seconds
	IdleTimeout time.Duration
	Secure      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
	File  string
}

type AvailabilityConfig struct {
	Debounce time.Duration
}

type SearchConfig struct {
	CacheSize     int
	CacheTTL      time.Duration
	BackoffWindow time.Duration
}

type CheckoutConfig struct {
	StatusWait  time.Duration
	CallbackURL string
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

const defaultSessionSecret = "change-me-in-production"

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:4000"), "/"),
			Timeout: getEnvAsDuration("API_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", defaultSessionSecret),
			MaxAge:      getEnvAsInt("SESSION_MAX_AGE", 86400*7),
			IdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			Secure:      getEnvAsBool("SESSION_SECURE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/storefront.log"),
		},
		Availability: AvailabilityConfig{
			Debounce: getEnvAsDuration("AVAILABILITY_DEBOUNCE", 300*time.Millisecond),
		},
		Search: SearchConfig{
			CacheSize:     getEnvAsInt("SEARCH_CACHE_SIZE", 128),
			CacheTTL:      getEnvAsDuration("SEARCH_CACHE_TTL", time.Minute),
			BackoffWindow: getEnvAsDuration("SEARCH_BACKOFF_WINDOW", 30*time.Second),
		},
		Checkout: CheckoutConfig{
			StatusWait:  getEnvAsDuration("CHECKOUT_STATUS_WAIT", 20*time.Second),
			CallbackURL: getEnv("CHECKOUT_CALLBACK_URL", "http://localhost:8080/checkout/processing"),
		},
	}

	if !config.IsDevelopment() && config.Session.Secret == defaultSessionSecret {
		return nil, errors.New("SESSION_SECRET must be set outside development")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("300ms", "2h").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
