package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service.
type Config struct {
	Server  ServerConfig
	RPC     RPCConfig
	Database DatabaseConfig
	Logger  LoggerConfig
	Event   EventConfig
	Cache   CacheConfig
	Tracing TracingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RPCConfig holds gRPC server configuration.
type RPCConfig struct {
	Port                 string
	MaxConcurrentStreams uint32
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host             string
	Port             string
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
	MigrationsPath   string
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// EventConfig holds post-commit event sink configuration.
type EventConfig struct {
	Sink         string
	KafkaBrokers []string
	KafkaTopic   string
}

// CacheConfig holds the read-through cache configuration.
type CacheConfig struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
}

// TracingConfig holds OpenTelemetry exporter configuration.
type TracingConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		RPC: RPCConfig{
			Port:                 getEnv("RPC_PORT", "9090"),
			MaxConcurrentStreams: uint32(getIntEnv("RPC_MAX_CONCURRENT_STREAMS", 100)),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnv("DB_PORT", "5432"),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", "postgres"),
			DBName:           getEnv("DB_NAME", "inventory"),
			SSLMode:          getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:     getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime:  getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			StatementTimeout: getDurationEnv("DB_STATEMENT_TIMEOUT", 30*time.Second),
			MigrationsPath:   getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Event: EventConfig{
			Sink:         getEnv("EVENT_SINK", "log"),
			KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "inventory.stock_movements"),
		},
		Cache: CacheConfig{
			Enabled:   getBoolEnv("CACHE_ENABLED", false),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:       getDurationEnv("REDIS_TTL", time.Minute),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "inventory-service"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host must be set")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name must be set")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, strings.ToLower(c.Logger.Format)) {
		return fmt.Errorf("invalid log format: %s, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	validSinks := []string{"log", "kafka"}
	if !contains(validSinks, strings.ToLower(c.Event.Sink)) {
		return fmt.Errorf("invalid event sink: %s, must be one of: %s", c.Event.Sink, strings.Join(validSinks, ", "))
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
