package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Ledger   LedgerConfig
	Notify   NotifyConfig
	Queue    QueueConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
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
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	Provider        string
	GatewayURL      string
	APIKey          string
	AmountTolerance float64
}

// LedgerConfig holds wallet/ledger service configuration
type LedgerConfig struct {
	WalletURL string
	APIKey    string
}

// NotifyConfig holds notification trigger configuration
type NotifyConfig struct {
	WebhookURL string
	APIKey     string
}

// QueueConfig holds queue engine tunables
type QueueConfig struct {
	MaxRecalls            int
	CacheTTL              time.Duration
	ObservedSampleWindow  int
	ObservedMinSamples    int
	DefaultCommissionRate float64
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
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "clinic_session_queue"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Payment: PaymentConfig{
			Provider:        getEnv("PAYMENT_PROVIDER", "mock"),
			GatewayURL:      getEnv("PAYMENT_GATEWAY_URL", ""),
			APIKey:          getEnv("PAYMENT_API_KEY", ""),
			AmountTolerance: getEnvAsFloat("PAYMENT_AMOUNT_TOLERANCE", 0.01),
		},
		Ledger: LedgerConfig{
			WalletURL: getEnv("LEDGER_WALLET_URL", ""),
			APIKey:    getEnv("LEDGER_API_KEY", ""),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			APIKey:     getEnv("NOTIFY_API_KEY", ""),
		},
		Queue: QueueConfig{
			MaxRecalls:            getEnvAsInt("QUEUE_MAX_RECALLS", 2),
			CacheTTL:              time.Duration(getEnvAsInt("QUEUE_CACHE_TTL_SECONDS", 1800)) * time.Second,
			ObservedSampleWindow:  getEnvAsInt("QUEUE_OBSERVED_SAMPLE_WINDOW", 5),
			ObservedMinSamples:    getEnvAsInt("QUEUE_OBSERVED_MIN_SAMPLES", 2),
			DefaultCommissionRate: getEnvAsFloat("QUEUE_DEFAULT_COMMISSION_RATE", 10),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinic-session-queue"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
