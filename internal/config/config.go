package config

import (
	"os"
	"strconv"

	"vpcstats/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Runtime  RuntimeConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection settings. An empty URL disables
// run persistence; computed results are then only returned to callers.
type DatabaseConfig struct {
	URL string
}

// RuntimeConfig holds computation settings
type RuntimeConfig struct {
	// Workers bounds the parallel replicate fan-out. Zero means GOMAXPROCS.
	Workers int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Runtime: RuntimeConfig{
			Workers: getEnvIntOrDefault("VPC_WORKERS", 0),
		},
	}

	if cfg.Runtime.Workers < 0 {
		return nil, errors.ConfigInvalid("VPC_WORKERS must be >= 0")
	}
	return cfg, nil
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
