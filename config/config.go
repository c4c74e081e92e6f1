// Package config loads engine configuration from the environment.
// Deployments tune the engine with ENSEMBLE_* variables; everything has a
// safe default so local development needs no setup.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the tunable parameters of the orchestration engine.
type Config struct {
	// InvokeTimeout bounds each participant invocation.
	InvokeTimeout time.Duration `env:"ENSEMBLE_INVOKE_TIMEOUT" envDefault:"120s"`

	// MaxConcurrentRuns limits how many runs execute simultaneously.
	// Zero means unlimited.
	MaxConcurrentRuns int `env:"ENSEMBLE_MAX_CONCURRENT_RUNS" envDefault:"10"`

	// FallbackAttempts bounds the model fallback chain per invocation.
	FallbackAttempts int `env:"ENSEMBLE_FALLBACK_ATTEMPTS" envDefault:"3"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"ENSEMBLE_LOG_LEVEL" envDefault:"info"`

	// LogFormat is json or text.
	LogFormat string `env:"ENSEMBLE_LOG_FORMAT" envDefault:"json"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.InvokeTimeout < 0 {
		return fmt.Errorf("invoke timeout must not be negative, got %s", c.InvokeTimeout)
	}
	if c.MaxConcurrentRuns < 0 {
		return fmt.Errorf("max concurrent runs must not be negative, got %d", c.MaxConcurrentRuns)
	}
	if c.FallbackAttempts < 1 {
		return fmt.Errorf("fallback attempts must be >= 1, got %d", c.FallbackAttempts)
	}
	return nil
}

// Default returns the configuration used when the environment is not
// consulted.
func Default() Config {
	return Config{
		InvokeTimeout:     120 * time.Second,
		MaxConcurrentRuns: 10,
		FallbackAttempts:  3,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}
