package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffle/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	StatementTimeout time.Duration // statement_timeout applied to every pooled connection
	LockTimeout      time.Duration // lock_timeout applied to every pooled connection
	DatabaseMaxConns int32

	// HTTP configuration
	HTTPAddr       string
	JWTSecret      string
	AllowedOrigins []string

	// Ledger configuration
	HouseAccountID        int64         // Account credited with the draw commission
	UnitMaxRetries        int           // Retries for serialization failures and deadlocks
	UnitTimeout           time.Duration // Upper bound for a single transactional unit
	AutoDrawCheckInterval time.Duration // How often the scheduler inspects GlobalStats

	// Draw lock configuration
	DrawLockBackend string // "local" or "redis"
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DrawLockTTL     time.Duration

	// Payment gateway
	PaymentTokenPrefix string
	PaymentMerchantID  string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables publishing

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// ConnectionOptions returns the pool options derived from this config
func (c *Config) ConnectionOptions() database.ConnectionOptions {
	return database.ConnectionOptions{
		StatementTimeout: c.StatementTimeout,
		LockTimeout:      c.LockTimeout,
		MaxConns:         c.DatabaseMaxConns,
	}
}

// load loads configuration from environment variables, after an optional .env file
func load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseName:     os.Getenv("DATABASE_NAME"),
		StatementTimeout: getDurationWithDefault("DB_STATEMENT_TIMEOUT", 5*time.Second),
		LockTimeout:      getDurationWithDefault("DB_LOCK_TIMEOUT", 3*time.Second),
		DatabaseMaxConns: int32(getIntWithDefault("DB_MAX_CONNS", 10)),

		// HTTP
		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":3001"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "https://*,http://*")),

		// Ledger
		HouseAccountID:        int64(getIntWithDefault("HOUSE_ACCOUNT_ID", 1)),
		UnitMaxRetries:        getIntWithDefault("UNIT_MAX_RETRIES", 3),
		UnitTimeout:           getDurationWithDefault("UNIT_TIMEOUT", 15*time.Second),
		AutoDrawCheckInterval: getDurationWithDefault("AUTO_DRAW_CHECK_INTERVAL", 60*time.Second),

		// Draw lock
		DrawLockBackend: getEnvWithDefault("DRAW_LOCK_BACKEND", "local"),
		RedisAddr:       getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getIntWithDefault("REDIS_DB", 0),
		DrawLockTTL:     getDurationWithDefault("DRAW_LOCK_TTL", 30*time.Second),

		// Payment gateway
		PaymentTokenPrefix: getEnvWithDefault("PAYMENT_TOKEN_PREFIX", "kbz_token_"),
		PaymentMerchantID:  getEnvWithDefault("KBZPAY_MERCHANT_ID", "JT04"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "raffle"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: getIntWithDefault("OTEL_EXPORT_INTERVAL_MILLIS", 60000),

		// Logging
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if config.DrawLockBackend != "local" && config.DrawLockBackend != "redis" {
		return nil, fmt.Errorf("DRAW_LOCK_BACKEND must be 'local' or 'redis', got %q", config.DrawLockBackend)
	}
	if config.UnitMaxRetries < 0 {
		return nil, fmt.Errorf("UNIT_MAX_RETRIES cannot be negative")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationWithDefault accepts Go duration strings ("90s") or plain seconds ("90")
func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		JWTSecret:             "test-secret",
		HTTPAddr:              ":0",
		HouseAccountID:        1,
		UnitMaxRetries:        3,
		UnitTimeout:           10 * time.Second,
		AutoDrawCheckInterval: 60 * time.Second,
		DrawLockBackend:       "local",
		DrawLockTTL:           30 * time.Second,
		PaymentTokenPrefix:    "kbz_token_",
		StatementTimeout:      5 * time.Second,
		LockTimeout:           3 * time.Second,
		OTelExporterType:      "none",
		LogLevel:              "info",
		LogFormat:             "text",
	}
}
