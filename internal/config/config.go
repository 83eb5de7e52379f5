package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Counter backend selection values.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	CounterBackend string `env:"COUNTER_BACKEND" default:"redis"`
	RedisURL       string `env:"REDIS_URL"`
	DatabaseURL    string `env:"DATABASE_URL"`

	MaxSubscribers int `env:"MAX_SUBSCRIBERS" default:"10000"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.CounterBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when COUNTER_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when COUNTER_BACKEND is %q", BackendPostgres)
		}
	case BackendMemory:
		// Development only, nothing to validate. Values do not survive restarts.
	default:
		return fmt.Errorf("COUNTER_BACKEND must be one of %q, %q, %q, got %q",
			BackendRedis, BackendPostgres, BackendMemory, cfg.CounterBackend)
	}

	if cfg.MaxSubscribers <= 0 {
		return fmt.Errorf("MAX_SUBSCRIBERS must be positive, got %d", cfg.MaxSubscribers)
	}

	return nil
}
