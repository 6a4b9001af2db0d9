package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/pagegraph/internal/errors"
)

// Config holds all configuration settings
type Config struct {
	// Entity store backend
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Read-through lookup cache in front of the store
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Resolution limits
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`

	// Query gateway settings
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`

	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "memory", "sqlite", "bolt"
	Path string `mapstructure:"path" yaml:"path"`
}

type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

type ResolverConfig struct {
	MaxDepth    int `mapstructure:"max_depth" yaml:"max_depth"`
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

type GatewayConfig struct {
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second, 0 = unlimited
	Burst          int           `mapstructure:"burst" yaml:"burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	JSON       bool   `mapstructure:"json" yaml:"json"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"` // In bytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type: "memory",
			Path: filepath.Join(homeDir, ".pagegraph", "pages.db"),
		},
		Cache: CacheConfig{
			Enabled:         false,
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Resolver: ResolverConfig{
			MaxDepth:    16,
			Parallelism: 8,
		},
		Gateway: GatewayConfig{
			RateLimit:      0,
			Burst:          10,
			RequestTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			JSON:       false,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", cfg.Cache.CleanupInterval)
	v.SetDefault("resolver.max_depth", cfg.Resolver.MaxDepth)
	v.SetDefault("resolver.parallelism", cfg.Resolver.Parallelism)
	v.SetDefault("gateway.rate_limit", cfg.Gateway.RateLimit)
	v.SetDefault("gateway.burst", cfg.Gateway.Burst)
	v.SetDefault("gateway.request_timeout", cfg.Gateway.RequestTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size", cfg.Log.MaxSize)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)

	// Load from environment variables (PAGEGRAPH_RESOLVER_MAX_DEPTH, ...)
	v.SetEnvPrefix("PAGEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath(".pagegraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".pagegraph"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to read config")
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to unmarshal config")
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			// godotenv never overrides variables that are already set
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".pagegraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the short-form environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if depth := os.Getenv("PAGEGRAPH_MAX_DEPTH"); depth != "" {
		if d, err := strconv.Atoi(depth); err == nil {
			cfg.Resolver.MaxDepth = d
		}
	}
	if storage := os.Getenv("PAGEGRAPH_STORAGE"); storage != "" {
		cfg.Storage.Type = storage
	}
	if level := os.Getenv("PAGEGRAPH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}
