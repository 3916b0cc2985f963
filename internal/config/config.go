package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/domain"
)

const DefaultAPIBaseURL = "http://localhost:8080"

type Config struct {
	API         APIConfig
	Refresh     RefreshConfig
	Session     SessionConfig
	Server      ServerConfig
	Worker      WorkerConfig
	Logging     LoggingConfig
	EventBus    EventBusConfig
	Maintenance MaintenanceConfig
	Metrics     MetricsConfig
}

type APIConfig struct {
	BaseURL     string
	Timeout     time.Duration
	CacheMaxAge time.Duration
}

type RefreshConfig struct {
	Mode       string
	Interval   time.Duration
	Categories []domain.Category
}

type SessionConfig struct {
	File string
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

type WorkerConfig struct {
	PoolSize int
}

type LoggingConfig struct {
	Level string
}

type EventBusConfig struct {
	ChannelBufferSize int
}

type MaintenanceConfig struct {
	Schedule          string
	IdempotencyWindow time.Duration
}

type MetricsConfig struct {
	Addr string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	return &Config{
		API: APIConfig{
			BaseURL:     getEnv("API_BASE_URL", getEnv("VITE_API_BASE_URL", DefaultAPIBaseURL)),
			Timeout:     getDurationEnv("REQUEST_TIMEOUT", 15*time.Second),
			CacheMaxAge: getDurationEnv("CACHE_MAX_AGE", 0),
		},
		Refresh: RefreshConfig{
			Mode:       getEnv("REFRESH_MODE", "poll"),
			Interval:   getDurationEnv("REFRESH_INTERVAL", 30*time.Second),
			Categories: getCategoriesEnv("REFRESH_CATEGORIES"),
		},
		Session: SessionConfig{
			File: getEnv("SESSION_FILE", ""),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Worker: WorkerConfig{
			PoolSize: getIntEnv("WORKER_POOL_SIZE", 4),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		EventBus: EventBusConfig{
			ChannelBufferSize: getIntEnv("EVENT_CHANNEL_BUFFER_SIZE", 64),
		},
		Maintenance: MaintenanceConfig{
			Schedule:          getEnv("MAINTENANCE_SCHEDULE", "@every 1m"),
			IdempotencyWindow: getDurationEnv("IDEMPOTENCY_WINDOW", 24*time.Hour),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.API.CacheMaxAge < 0 {
		errs = multierr.Append(errs, errors.New("CACHE_MAX_AGE must not be negative"))
	}
	switch c.Refresh.Mode {
	case "poll", "sse", "websocket":
	default:
		errs = multierr.Append(errs, fmt.Errorf("REFRESH_MODE must be poll, sse or websocket, got %q", c.Refresh.Mode))
	}
	if c.Refresh.Interval <= 0 {
		errs = multierr.Append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	if c.Maintenance.IdempotencyWindow <= 0 {
		errs = multierr.Append(errs, errors.New("IDEMPOTENCY_WINDOW must be positive"))
	}

	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getCategoriesEnv(key string) []domain.Category {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	categories, err := domain.ParseCategories(valueStr)
	if err != nil {
		log.Printf("Invalid categories for %s: %s, watching all", key, err)
		return nil
	}

	return categories
}
