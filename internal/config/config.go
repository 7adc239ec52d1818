// README: Config loader with env defaults for HTTP, DB, Redis, and dispatch settings.
package config

import (
	"os"
	"strconv"
	"time"
)

type DispatchConfig struct {
	// MinChargeLevel is the charge floor; vehicles at or below it are never matched.
	MinChargeLevel int
	// ChargeCost is the charge deducted from a vehicle on trip completion.
	ChargeCost int
	// Tick is the simulator update interval.
	Tick time.Duration
	// ProgressStep is the route fraction covered per tick.
	ProgressStep float64
	// ReconcileInterval is how often the drift sweep runs.
	ReconcileInterval time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		// DSN selects the Postgres stores; empty runs on the in-memory stores.
		DSN string
	}
	Redis struct {
		// Addr enables the cross-instance event bridge; empty disables it.
		Addr string
	}
	Maps struct {
		// APIKey enables Google Maps travel estimates on dispatch; empty disables them.
		APIKey string
	}
	Catalog struct {
		// BaseURL points at the product catalog service; empty runs on the
		// built-in demo catalog.
		BaseURL string
	}
	Dispatch DispatchConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FOODFAST_HTTP_ADDR", ":8080")
	cfg.DB.DSN = envOrDefault("FOODFAST_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("FOODFAST_REDIS_ADDR", "")
	cfg.Maps.APIKey = envOrDefault("FOODFAST_MAPS_API_KEY", "")
	cfg.Catalog.BaseURL = envOrDefault("FOODFAST_CATALOG_URL", "")
	cfg.Dispatch.MinChargeLevel = envOrDefaultInt("FOODFAST_MIN_CHARGE", 20)
	cfg.Dispatch.ChargeCost = envOrDefaultInt("FOODFAST_CHARGE_COST", 10)
	cfg.Dispatch.Tick = time.Duration(envOrDefaultInt("FOODFAST_SIM_TICK_MS", 2000)) * time.Millisecond
	cfg.Dispatch.ProgressStep = envOrDefaultFloat("FOODFAST_SIM_STEP", 0.05)
	cfg.Dispatch.ReconcileInterval = time.Duration(envOrDefaultInt("FOODFAST_RECONCILE_SECONDS", 30)) * time.Second
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}
