// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings shared by every entry point
type Config struct {
	DebugFlag        string        `env:"DEBUG"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	Version          string        `env:"APP_VERSION" envDefault:"1.0.0"`
	CacheDir         string        `env:"CACHE_DIR" envDefault:"/tmp/.cache"`
	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"VoiceInsight"`
	Region           string        `env:"AWS_REGION"`
	InferenceURL     string        `env:"INFERENCE_URL"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"25s"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ListenAddr       string        `env:"LISTEN_ADDR" envDefault:":8000"`
}

// Debug reports whether error details may be returned to callers.
// Any non-empty DEBUG value turns it on.
func (c Config) Debug() bool {
	return c.DebugFlag != ""
}

// Load parses the environment into a Config
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Default(), fmt.Errorf("could not parse environment: %w", err)
	}
	return c, nil
}

// Default returns the settings used when the environment cannot be parsed
func Default() Config {
	return Config{
		Environment:      "development",
		Version:          "1.0.0",
		CacheDir:         "/tmp/.cache",
		MetricsNamespace: "VoiceInsight",
		InferenceTimeout: 25 * time.Second,
		LogLevel:         "info",
		ListenAddr:       ":8000",
	}
}
