package config

import (
	"os"
	"strconv"
	"time"

	"aigovern/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Worker   WorkerConfig   `validate:"required"`
	Notify   NotifyConfig
	Data     DataConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string `validate:"required"`
	SSLMode string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `validate:"required"`
}

// WorkerConfig holds run execution settings
type WorkerConfig struct {
	ID             string
	Count          int
	QueueBuffer    int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NotifyConfig holds completion notification settings
type NotifyConfig struct {
	WebhookURL string
	Enabled    bool
}

// DataConfig holds dataset ingestion settings
type DataConfig struct {
	ExcelFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.Server = *loadServerConfig()
	config.Worker = *loadWorkerConfig()
	config.Notify = *loadNotifyConfig()
	config.Data = *loadDataConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadWorkerConfig() *WorkerConfig {
	hostname, _ := os.Hostname()
	return &WorkerConfig{
		ID:             getEnvOrDefault("WORKER_ID", hostname),
		Count:          getEnvIntOrDefault("WORKER_COUNT", 4),
		QueueBuffer:    getEnvIntOrDefault("QUEUE_BUFFER", 64),
		MaxAttempts:    getEnvIntOrDefault("RUN_MAX_ATTEMPTS", 3),
		InitialBackoff: getEnvDurationOrDefault("RUN_INITIAL_BACKOFF", 2*time.Second),
		MaxBackoff:     getEnvDurationOrDefault("RUN_MAX_BACKOFF", time.Minute),
	}
}

func loadNotifyConfig() *NotifyConfig {
	url := getEnvOrDefault("WEBHOOK_URL", "")
	return &NotifyConfig{
		WebhookURL: url,
		Enabled:    url != "",
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Worker.Count < 1 {
		return errors.ConfigInvalid("worker count must be at least 1")
	}
	if config.Worker.MaxAttempts < 1 {
		return errors.ConfigInvalid("run max attempts must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
