package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the aggregator process needs at startup.
type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level

	// Port the aggregation server listens on.
	Port int

	// StorageFile is the crash-safe snapshot location.
	StorageFile string

	// ExpiryWindow is how long a station survives without an update;
	// SweepInterval is how often the expiry sweep runs.
	ExpiryWindow  time.Duration
	SweepInterval time.Duration

	// Capacity bounds the number of retained stations.
	Capacity int

	// Workers sizes the connection handler pool.
	Workers int

	// IOTimeout bounds accept and per-connection read/write waits.
	IOTimeout time.Duration

	// CalcPort is where the stack calculator RPC service listens.
	CalcPort int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.Port = getenvInt("AGG_PORT", 4567)
	cfg.StorageFile = getenvDefault("AGG_STORAGE_FILE", "aggregation_server_data.txt")
	cfg.Capacity = getenvInt("AGG_CAPACITY", 20)
	cfg.Workers = getenvInt("AGG_WORKERS", 10)
	cfg.CalcPort = getenvInt("CALC_PORT", 4568)

	cfg.ExpiryWindow, err = getenvDuration("AGG_EXPIRY_WINDOW", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval, err = getenvDuration("AGG_SWEEP_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	cfg.IOTimeout, err = getenvDuration("AGG_IO_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
