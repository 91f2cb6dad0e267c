package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIG — YAML file + environment overrides
// ============================================================================
// Precedence: defaults < YAML file < FINLENS_* environment variables.
// ============================================================================

// Config holds server and engine settings.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr"`

	// DataFile is the CSV dataset loaded at startup. Optional for serve
	// (a dataset can arrive later); required for ask/profile.
	DataFile string `yaml:"data_file"`

	// HistoryDB is the SQLite path for query history. Empty disables
	// history; ":memory:" keeps it ephemeral.
	HistoryDB string `yaml:"history_db"`

	// ForecastMonths is the default prediction horizon.
	ForecastMonths int `yaml:"forecast_months"`

	// CacheSize caps the per-dataset answer cache; the cache is flushed
	// when it fills.
	CacheSize int `yaml:"cache_size"`

	// CORSOrigins lists allowed browser origins for the API.
	CORSOrigins []string `yaml:"cors_origins"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		HistoryDB:      "finlens_history.db",
		ForecastMonths: 3,
		CacheSize:      1024,
		CORSOrigins:    []string{"*"},
		LogLevel:       "info",
	}
}

// Load reads configuration: defaults, then the YAML file at path (skipped
// when path is empty), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FINLENS_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("FINLENS_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("FINLENS_HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv("FINLENS_FORECAST_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ForecastMonths = n
		}
	}
	if v := os.Getenv("FINLENS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if c.ForecastMonths < 1 || c.ForecastMonths > 24 {
		return fmt.Errorf("config: forecast_months must be between 1 and 24, got %d", c.ForecastMonths)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("config: cache_size must be positive, got %d", c.CacheSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
