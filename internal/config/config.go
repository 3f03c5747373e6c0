package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName   string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"` // redis or sqlite
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"combat.db"`
	DataDir        string        `env:"DATA_DIR" envDefault:"./data"`
	TuningFile     string        `env:"TUNING_FILE"`
	PulseInterval  time.Duration `env:"PULSE_INTERVAL" envDefault:"1s"`
	RNGSeed        uint64        `env:"RNG_SEED"` // 0 seeds from the clock
	WorkerID       string        `env:"WORKER_ID"`

	LogLevel slog.Level `env:"-"`
}

// Load reads the process configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	switch cfg.StorageBackend {
	case "redis", "sqlite":
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.PulseInterval <= 0 {
		return nil, fmt.Errorf("PULSE_INTERVAL must be positive, got %s", cfg.PulseInterval)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
