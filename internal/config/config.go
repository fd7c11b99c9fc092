package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Inference InferenceConfig `json:"inference"`
	Auth      AuthConfig      `json:"auth"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
}

// InferenceConfig configures the remote inference service client
type InferenceConfig struct {
	Endpoint       string `json:"endpoint"`        // base URL of the inference service
	TimeoutSeconds int    `json:"timeout_seconds"` // per-request HTTP timeout
}

// AuthConfig controls authentication behavior
type AuthConfig struct {
	Provider          string `json:"provider"`            // "local"
	SessionExpiryDays int    `json:"session_expiry_days"` // remembered sign-in lifetime
}

// StorageConfig controls where local state lives
type StorageConfig struct {
	DBPath    string `json:"db_path"`    // SQLite document store
	CachePath string `json:"cache_path"` // bbolt session cache
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `json:"level"` // "debug", "info", "warn", "error"
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Inference: InferenceConfig{
			Endpoint:       "http://localhost:8000",
			TimeoutSeconds: 60,
		},
		Auth: AuthConfig{
			Provider:          "local",
			SessionExpiryDays: 7,
		},
		Storage: StorageConfig{
			DBPath:    "foundrscan.db",
			CachePath: "foundrscan-cache.bolt",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file and environment. A missing config file
// is created with defaults; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.fillDefaults()
	} else {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fillDefaults applies defaults for any fields missing from the config file
func (c *Config) fillDefaults() {
	def := Defaults()
	if c.Inference.Endpoint == "" {
		c.Inference.Endpoint = def.Inference.Endpoint
	}
	if c.Inference.TimeoutSeconds == 0 {
		c.Inference.TimeoutSeconds = def.Inference.TimeoutSeconds
	}
	if c.Auth.Provider == "" {
		c.Auth.Provider = def.Auth.Provider
	}
	if c.Auth.SessionExpiryDays == 0 {
		c.Auth.SessionExpiryDays = def.Auth.SessionExpiryDays
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = def.Storage.DBPath
	}
	if c.Storage.CachePath == "" {
		c.Storage.CachePath = def.Storage.CachePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// applyEnvOverrides lets environment variables take precedence over the file
func (c *Config) applyEnvOverrides() {
	c.Inference.Endpoint = getEnv("FOUNDRSCAN_INFERENCE_ENDPOINT", c.Inference.Endpoint)
	c.Inference.TimeoutSeconds = getEnvInt("FOUNDRSCAN_INFERENCE_TIMEOUT_SECONDS", c.Inference.TimeoutSeconds)
	c.Auth.Provider = getEnv("FOUNDRSCAN_AUTH_PROVIDER", c.Auth.Provider)
	c.Auth.SessionExpiryDays = getEnvInt("FOUNDRSCAN_SESSION_EXPIRY_DAYS", c.Auth.SessionExpiryDays)
	c.Storage.DBPath = getEnv("FOUNDRSCAN_DB_PATH", c.Storage.DBPath)
	c.Storage.CachePath = getEnv("FOUNDRSCAN_CACHE_PATH", c.Storage.CachePath)
	c.Logging.Level = getEnv("FOUNDRSCAN_LOG_LEVEL", c.Logging.Level)
}

// Validate checks that all required configuration fields are usable
func (c *Config) Validate() error {
	if c.Inference.Endpoint == "" {
		return fmt.Errorf("inference endpoint cannot be empty")
	}
	if !strings.HasPrefix(c.Inference.Endpoint, "http://") && !strings.HasPrefix(c.Inference.Endpoint, "https://") {
		return fmt.Errorf("inference endpoint must be an http(s) URL: %s", c.Inference.Endpoint)
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return fmt.Errorf("inference timeout must be > 0")
	}
	if c.Auth.SessionExpiryDays <= 0 {
		return fmt.Errorf("session expiry must be > 0 days")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if c.Storage.CachePath == "" {
		return fmt.Errorf("cache path cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
