// Package config loads runtime configuration from .env, an optional YAML
// file, and the process environment (highest precedence).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile   = "file"
	BackendDuckDB = "duckdb"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds application configuration
type Config struct {
	DataDir             string        `yaml:"data_dir"`
	StorageBackend      string        `yaml:"storage_backend"`
	DuckDBPath          string        `yaml:"duckdb_path"`
	Season              int           `yaml:"season"`
	ModelName           string        `yaml:"model_name"`
	ExaAPIKey           string        `yaml:"exa_api_key"`
	OddsAPIKey          string        `yaml:"odds_api_key"`
	Transport           string        `yaml:"transport"`
	Port                string        `yaml:"port"`
	LogLevel            string        `yaml:"log_level"`
	LogPretty           bool          `yaml:"log_pretty"`
	ScratchpadMaxTokens int           `yaml:"scratchpad_max_tokens"`
	SearchTimeout       time.Duration `yaml:"search_timeout"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		DataDir:             ".",
		StorageBackend:      BackendFile,
		Season:              2025,
		ModelName:           "default",
		Transport:           TransportStdio,
		Port:                "8080",
		LogLevel:            "info",
		ScratchpadMaxTokens: 20000,
		SearchTimeout:       10 * time.Second,
	}
}

// Load reads configuration. Order: defaults, YAML file named by
// NFLPICKER_CONFIG, then environment variables (.env included).
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("NFLPICKER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.DuckDBPath = getEnv("DUCKDB_PATH", cfg.DuckDBPath)
	cfg.Season = getEnvAsInt("SEASON", cfg.Season)
	cfg.ModelName = getEnv("MODEL_NAME", cfg.ModelName)
	cfg.ExaAPIKey = getEnv("EXA_API_KEY", cfg.ExaAPIKey)
	cfg.OddsAPIKey = getEnv("ODDS_API_KEY", cfg.OddsAPIKey)
	cfg.Transport = getEnv("TRANSPORT", cfg.Transport)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvAsBool("LOG_PRETTY", cfg.LogPretty)
	cfg.ScratchpadMaxTokens = getEnvAsInt("SCRATCHPAD_MAX_TOKENS", cfg.ScratchpadMaxTokens)
	cfg.SearchTimeout = getEnvAsDuration("SEARCH_TIMEOUT", cfg.SearchTimeout)

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	cfg.DataDir = absDataDir

	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = filepath.Join(cfg.DataDir, "nflpicker.duckdb")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that enumerated settings hold known values.
// API keys are optional: a missing Exa key disables search per call.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendDuckDB:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", c.StorageBackend, BackendFile, BackendDuckDB)
	}

	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportStdio, TransportHTTP)
	}

	if c.ScratchpadMaxTokens <= 0 {
		return fmt.Errorf("scratchpad max tokens must be positive, got %d", c.ScratchpadMaxTokens)
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}

	return nil
}

// Helper functions
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
