// Package config loads the banking core's configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Provider names selectable through BANK_PROVIDER.
const (
	ProviderSimulator = "simulator"
	ProviderPSD2      = "psd2"
)

// Config holds all configuration for the banking core daemon.
type Config struct {
	// HTTP health/metrics port
	HTTPPort int
	// Provider selects the banking backend: "simulator" or "psd2".
	Provider string
	// OAuth configuration for the PSD2 provider
	OAuth OAuthConfig
	// Database configuration
	Database DatabaseConfig
	// Kafka configuration
	Kafka KafkaConfig
	// Logging configuration
	Log LogConfig
	// Service name for observability
	ServiceName string
}

// OAuthConfig holds the OAuth2 client credentials for the PSD2 provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Environment selects the provider endpoint set: "sandbox" or
	// "production".
	Environment string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// MigrationsDir is the golang-migrate source URL.
	MigrationsDir string
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	if c.Provider != ProviderSimulator && c.Provider != ProviderPSD2 {
		return fmt.Errorf("BANK_PROVIDER must be %q or %q, got %q", ProviderSimulator, ProviderPSD2, c.Provider)
	}
	if c.Provider == ProviderPSD2 {
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
			return fmt.Errorf("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required with BANK_PROVIDER=psd2")
		}
		if c.OAuth.RedirectURI == "" {
			return fmt.Errorf("OAUTH_REDIRECT_URI is required with BANK_PROVIDER=psd2")
		}
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 9090),
		Provider:    getEnv("BANK_PROVIDER", ProviderSimulator),
		ServiceName: getEnv("SERVICE_NAME", "bankcore"),
		OAuth: OAuthConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("OAUTH_REDIRECT_URI", ""),
			Environment:  getEnv("OAUTH_ENVIRONMENT", "sandbox"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "floose"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "floose_bank"),
			SSLMode:       getEnv("DB_SSLMODE", "require"),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "file://internal/infrastructure/postgres/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
