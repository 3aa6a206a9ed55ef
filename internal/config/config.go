// Package config provides unified configuration loading for the price engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the price engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Selection     SelectionConfig     `yaml:"selection"`
	Batch         BatchConfig         `yaml:"batch"`
	Registry      RegistryConfig      `yaml:"registry"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds extraction cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory, redis or none
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ExtractionConfig holds the thresholds of segmentation and price detection.
type ExtractionConfig struct {
	LineYThreshold      float64 `yaml:"line_y_threshold"`
	MinPriceWon         int64   `yaml:"min_price_won"`
	MaxPriceWon         int64   `yaml:"max_price_won"`
	TrailingDigitFix    bool    `yaml:"trailing_digit_fix"`
	SquareMeterToPyeong float64 `yaml:"square_meter_to_pyeong"`
}

// SelectionConfig holds representative price selection settings.
type SelectionConfig struct {
	PublicTargetPyeong  float64 `yaml:"public_target_pyeong"`
	PrivateTargetPyeong float64 `yaml:"private_target_pyeong"`
}

// BatchConfig holds per-facility fan-out settings.
type BatchConfig struct {
	MaxConcurrentFacilities int           `yaml:"max_concurrent_facilities"`
	DocumentTimeout         time.Duration `yaml:"document_timeout"`
}

// RegistryConfig points at the facility metadata file.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// MonitoringConfig holds drift check settings. A zero check interval
// disables the periodic check of the API server.
type MonitoringConfig struct {
	FreshnessThreshold time.Duration `yaml:"freshness_threshold"`
	CheckInterval      time.Duration `yaml:"check_interval"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.Registry.Path != "" {
			cfg.Registry.Path = ResolveRelativePath(path, cfg.Registry.Path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			RequestTimeout:   60 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/price-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 5000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "pe:",
			},
		},
		Extraction: ExtractionConfig{
			LineYThreshold:      3.0,
			MinPriceWon:         100,
			MaxPriceWon:         5_000_000_000,
			TrailingDigitFix:    true,
			SquareMeterToPyeong: 0.3025,
		},
		Selection: SelectionConfig{
			PublicTargetPyeong:  1.5,
			PrivateTargetPyeong: 3.0,
		},
		Batch: BatchConfig{
			MaxConcurrentFacilities: 4,
			DocumentTimeout:         2 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			FreshnessThreshold: 90 * 24 * time.Hour,
			CheckInterval:      24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a dsn")
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Extraction.MinPriceWon < 0 || c.Extraction.MaxPriceWon <= c.Extraction.MinPriceWon {
		return fmt.Errorf("invalid price bounds: min=%d max=%d", c.Extraction.MinPriceWon, c.Extraction.MaxPriceWon)
	}

	if c.Extraction.LineYThreshold < 0 {
		return fmt.Errorf("line_y_threshold must not be negative")
	}

	if c.Selection.PublicTargetPyeong <= 0 || c.Selection.PrivateTargetPyeong <= 0 {
		return fmt.Errorf("area targets must be positive")
	}

	if c.Batch.MaxConcurrentFacilities < 1 {
		return fmt.Errorf("max_concurrent_facilities must be at least 1")
	}

	if c.Monitoring.FreshnessThreshold <= 0 {
		return fmt.Errorf("freshness_threshold must be positive")
	}

	if c.Monitoring.CheckInterval < 0 {
		return fmt.Errorf("check_interval must not be negative")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("PRICE_MIN_WON"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Extraction.MinPriceWon = n
		}
	}

	if v := os.Getenv("PRICE_MAX_WON"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Extraction.MaxPriceWon = n
		}
	}

	if v := os.Getenv("SEGMENT_Y_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Extraction.LineYThreshold = f
		}
	}

	if v := os.Getenv("TRAILING_DIGIT_FIX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Extraction.TrailingDigitFix = b
		}
	}

	if v := os.Getenv("MAX_CONCURRENT_FACILITIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxConcurrentFacilities = n
		}
	}

	if v := os.Getenv("FRESHNESS_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitoring.FreshnessThreshold = d
		}
	}

	if v := os.Getenv("FACILITY_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
