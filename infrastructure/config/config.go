package config

import (
	"fmt"
	"os"
	"strconv"
)

// CacheBackend selects where layout cache entries persist
type CacheBackend string

const (
	CacheBackendMemory   CacheBackend = "memory"
	CacheBackendSQLite   CacheBackend = "sqlite"
	CacheBackendDynamoDB CacheBackend = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Logging
	LogLevel string

	// Collection and rebuild behavior
	Collection       string
	DebounceMillis   int
	LayoutBoundsW    float64
	LayoutBoundsH    float64

	// Layout cache persistence
	CacheBackend  CacheBackend
	SQLitePath    string
	AWSRegion     string
	DynamoDBTable string

	// Runtime tuning file (scorer weights, layout constants); empty disables
	TuningPath string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool

	// Tracing
	TracingEndpoint string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		Collection:     getEnv("COLLECTION", "default"),
		DebounceMillis: getEnvInt("REBUILD_DEBOUNCE_MS", 2000),
		LayoutBoundsW:  getEnvFloat("LAYOUT_BOUNDS_WIDTH", 1600),
		LayoutBoundsH:  getEnvFloat("LAYOUT_BOUNDS_HEIGHT", 1200),

		CacheBackend:  CacheBackend(getEnv("CACHE_BACKEND", "memory")),
		SQLitePath:    getEnv("SQLITE_PATH", "data/layout-cache.db"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "screengraph-layout"),

		TuningPath: getEnv("TUNING_PATH", ""),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendSQLite, CacheBackendDynamoDB:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheBackend == CacheBackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required with the sqlite cache backend")
	}
	if c.CacheBackend == CacheBackendDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required with the dynamodb cache backend")
	}
	if c.LayoutBoundsW <= 0 || c.LayoutBoundsH <= 0 {
		return fmt.Errorf("layout bounds must be positive")
	}
	if c.DebounceMillis < 0 {
		return fmt.Errorf("REBUILD_DEBOUNCE_MS must not be negative")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
