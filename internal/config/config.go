package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort       string `yaml:"server_port"`
	FrontendURL      string `yaml:"frontend_url"`
	StorageDriver    string `yaml:"storage_driver"` // memory, sqlite, redis, postgres
	SQLitePath       string `yaml:"sqlite_path"`
	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	OpenAIKey        string `yaml:"openai_api_key"`
	AIModel          string `yaml:"ai_model"`
	AIBaseURL        string `yaml:"ai_base_url"`
	HistoryLimit     int    `yaml:"history_limit"`
	ReconsentOnEdit  bool   `yaml:"reconsent_on_edit"`
	RateLimit        string `yaml:"rate_limit"` // ulule format, e.g. 5-S
	EnableHSTS       bool   `yaml:"enable_hsts"`
	ServerDebugMode  bool   `yaml:"server_debug_mode"`
	OTELEnabled      bool   `yaml:"otel_enabled"`
	OTELEndpoint     string `yaml:"otel_endpoint"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return load(&Config{})
}

// LoadFile loads configuration from an optional YAML file, then applies
// environment variable overrides. A missing file is not an error; the file
// simply provides defaults below the environment.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return load(cfg)
}

func load(cfg *Config) (*Config, error) {
	cfg.ServerPort = getEnv("SERVER_PORT", defaultStr(cfg.ServerPort, "8080"))
	cfg.FrontendURL = getEnv("FRONTEND_URL", defaultStr(cfg.FrontendURL, "http://localhost:3000"))
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", defaultStr(cfg.StorageDriver, "sqlite"))
	cfg.SQLitePath = getEnv("SQLITE_PATH", defaultStr(cfg.SQLitePath, "scanwise.db"))
	cfg.RedisURL = getEnv("REDIS_URL", defaultStr(cfg.RedisURL, "redis://localhost:6379/0"))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", defaultInt(cfg.HistoryLimit, 20))
	cfg.ReconsentOnEdit = getEnvBool("RECONSENT_ON_EDIT", cfg.ReconsentOnEdit)
	cfg.RateLimit = getEnv("RATE_LIMIT", defaultStr(cfg.RateLimit, "5-S"))
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	switch cfg.StorageDriver {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q (must be memory, sqlite, redis, or postgres)", cfg.StorageDriver)
	}

	if cfg.StorageDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
	}

	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}

	return cfg, nil
}

func defaultStr(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}

func defaultInt(current, fallback int) int {
	if current != 0 {
		return current
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
