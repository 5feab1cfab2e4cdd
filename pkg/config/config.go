package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Matching  MatchingConfig
	Suggest   SuggestConfig
	Cache     CacheConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Environment string
	// Level is a zerolog level name; unknown names fall back to info
	Level string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// PoolSize covers the invalidation subscribers plus cache reads from the ranking workers
	PoolSize int
	// ConnectAttempts is how many pings to try at startup before running without Redis
	ConnectAttempts int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// MatchingConfig controls the hospital ranking fan-out
type MatchingConfig struct {
	// MaxConcurrency bounds the number of candidates scored at once
	MaxConcurrency int
	// StaffBatchWait is how long the staff loader collects keys before querying
	StaffBatchWait time.Duration
	RequestTimeout time.Duration
}

// SuggestConfig controls typeahead suggestions
type SuggestConfig struct {
	UseSearchIndex bool
	RequestTimeout time.Duration
}

// CacheConfig holds cache TTLs
type CacheConfig struct {
	TaxonomyTTLSeconds int
	// WarmInterval re-resolves the whole taxonomy on this period; zero disables warming
	WarmInterval time.Duration
	// EventBuffer is the per-subscriber backlog of directory events
	EventBuffer int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Environment: getEnv("APP_ENV", "production"),
			Level:       getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "carematch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),

			PoolSize:        getEnvAsInt("REDIS_POOL_SIZE", 20),
			ConnectAttempts: getEnvAsInt("REDIS_CONNECT_ATTEMPTS", 3),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Matching: MatchingConfig{
			MaxConcurrency: getEnvAsInt("MATCH_MAX_CONCURRENCY", 8),
			StaffBatchWait: getEnvAsDuration("MATCH_STAFF_BATCH_WAIT", 2*time.Millisecond),
			RequestTimeout: getEnvAsDuration("MATCH_REQUEST_TIMEOUT", 10*time.Second),
		},
		Suggest: SuggestConfig{
			UseSearchIndex: getEnvAsBool("SUGGEST_USE_SEARCH_INDEX", false),
			RequestTimeout: getEnvAsDuration("SUGGEST_REQUEST_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			TaxonomyTTLSeconds: getEnvAsInt("TAXONOMY_CACHE_TTL_SECONDS", 300),
			WarmInterval:       getEnvAsDuration("TAXONOMY_WARM_INTERVAL", 4*time.Minute),
			EventBuffer:        getEnvAsInt("EVENT_SUBSCRIBER_BUFFER", 100),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "carematch"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would make the service misbehave at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Matching.MaxConcurrency <= 0 {
		return fmt.Errorf("MATCH_MAX_CONCURRENCY must be positive, got %d", c.Matching.MaxConcurrency)
	}
	if c.Matching.StaffBatchWait < 0 {
		return fmt.Errorf("MATCH_STAFF_BATCH_WAIT must not be negative")
	}
	if c.Cache.TaxonomyTTLSeconds < 0 {
		return fmt.Errorf("TAXONOMY_CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
