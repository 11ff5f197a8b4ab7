// Package config defines the pricing engine configuration and its loader.
// Values come from built-in defaults, then an optional TOML file, then
// PRICING_* environment variable overrides (with PORT and REDIS_URL also
// honored for container platforms that inject them).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Redis      RedisConfig      `toml:"redis"`
	Simulation SimulationConfig `toml:"simulation"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port string `toml:"port"`
}

// RedisConfig holds the Redis connection URL. Empty disables Redis-backed
// features (the request rate limiter).
type RedisConfig struct {
	URL string `toml:"url"`
}

// SimulationConfig bounds and defaults for Monte Carlo requests. The HTTP
// layer enforces MaxPaths/MaxSteps before invoking the engine; the engine
// itself never self-limits.
type SimulationConfig struct {
	MaxPaths     int `toml:"max_paths"`
	MaxSteps     int `toml:"max_steps"`
	SampleLimit  int `toml:"sample_limit"`
	Workers      int `toml:"workers"` // pinned so HTTP runs replay bit-identically
	MaxTreeSteps int `toml:"max_tree_steps"`
}

// RateLimitConfig holds the per-client fixed-window rate limit.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		LogLevel: "info",
		Simulation: SimulationConfig{
			MaxPaths:     1_000_000,
			MaxSteps:     10_000,
			SampleLimit:  5,
			Workers:      4,
			MaxTreeSteps: 2_000,
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 120},
	}
}

// Load reads the optional TOML file at path (skipped when path is empty or
// missing), merges it over the defaults, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "PORT")
	setStr(&cfg.Server.Port, "PRICING_PORT")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.URL, "PRICING_REDIS_URL")
	setStr(&cfg.LogLevel, "PRICING_LOG_LEVEL")
	setInt(&cfg.Simulation.MaxPaths, "PRICING_MAX_PATHS")
	setInt(&cfg.Simulation.MaxSteps, "PRICING_MAX_STEPS")
	setInt(&cfg.Simulation.SampleLimit, "PRICING_SAMPLE_LIMIT")
	setInt(&cfg.Simulation.Workers, "PRICING_WORKERS")
	setInt(&cfg.Simulation.MaxTreeSteps, "PRICING_MAX_TREE_STEPS")
	setInt(&cfg.RateLimit.RequestsPerMinute, "PRICING_RATE_LIMIT_PER_MINUTE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("config: server port must be set")
	}
	if c.Simulation.MaxPaths < 1 {
		return fmt.Errorf("config: simulation max_paths must be at least 1")
	}
	if c.Simulation.MaxSteps < 1 {
		return fmt.Errorf("config: simulation max_steps must be at least 1")
	}
	if c.Simulation.SampleLimit < 0 {
		return fmt.Errorf("config: simulation sample_limit must be non-negative")
	}
	if c.Simulation.Workers < 1 {
		return fmt.Errorf("config: simulation workers must be at least 1")
	}
	if c.Simulation.MaxTreeSteps < 1 {
		return fmt.Errorf("config: simulation max_tree_steps must be at least 1")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("config: rate_limit requests_per_minute must be non-negative")
	}
	return nil
}
