// Package config loads runtime settings from a config file and
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application's configuration.
type Config struct {
	// DataDir is where the badger database lives
	DataDir string `mapstructure:"DATA_DIR"`

	// InMemory runs storage without persistence, mainly for testing
	InMemory bool `mapstructure:"IN_MEMORY"`

	// TopK is the default number of candidates returned per search
	TopK int `mapstructure:"TOP_K"`

	// PoolSize is the worker pool size for scoring and CSV parsing;
	// 0 picks a size from the CPU count
	PoolSize int `mapstructure:"POOL_SIZE"`

	// TreeCount is the number of trees in the probabilistic forest
	TreeCount int `mapstructure:"TREE_COUNT"`

	// Seed drives deterministic model training
	Seed int64 `mapstructure:"SEED"`

	// TfidfWeight and FuzzyWeight blend the fast-search signals;
	// they must sum to 1
	TfidfWeight float64 `mapstructure:"TFIDF_WEIGHT"`
	FuzzyWeight float64 `mapstructure:"FUZZY_WEIGHT"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads configuration from ./config.yaml (optional) and PRODMATCH_*
// environment variables, falling back to defaults.
func Load(logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("PRODMATCH")
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("IN_MEMORY", false)
	v.SetDefault("TOP_K", 5)
	v.SetDefault("POOL_SIZE", 0)
	v.SetDefault("TREE_COUNT", 100)
	v.SetDefault("SEED", 42)
	v.SetDefault("TFIDF_WEIGHT", 0.7)
	v.SetDefault("FUZZY_WEIGHT", 0.3)
	v.SetDefault("LOG_LEVEL", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		logger.Debug("no config file found, using defaults and environment")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.TreeCount < 1 {
		return fmt.Errorf("TREE_COUNT must be at least 1, got %d", c.TreeCount)
	}
	if c.TfidfWeight < 0 || c.FuzzyWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative, got tfidf=%v fuzzy=%v",
			c.TfidfWeight, c.FuzzyWeight)
	}
	if math.Abs(c.TfidfWeight+c.FuzzyWeight-1.0) > 1e-9 {
		return fmt.Errorf("blend weights must sum to 1, got tfidf=%v fuzzy=%v",
			c.TfidfWeight, c.FuzzyWeight)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
