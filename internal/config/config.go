// Package config resolves process-wide runtime settings the way the
// teacher resolves them in internal/api/debug.go: environment variables
// read once at startup into an immutable value, with an optional YAML
// file able to set defaults: cost defaults that non-zero costs in the
// request body override, and a default policy that the ?policy= query
// parameter overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"railshunt/internal/model"
)

// Runtime is the resolved, immutable set of process-wide settings.
type Runtime struct {
	Port          string
	PoolSize      int
	RateRPS       float64
	RateBurst     int
	DatabaseURL   string
	RedisURL      string
	DefaultCosts  *model.CostDefaults
	DefaultPolicy string
}

type fileConfig struct {
	DefaultCosts  *model.CostDefaults `yaml:"defaultCosts,omitempty"`
	DefaultPolicy string               `yaml:"defaultPolicy,omitempty"`
}

// Load resolves Runtime from the environment, optionally overlaying
// CONFIG_FILE (YAML). Positional CLI arguments take priority over PORT
// for the listen port, per spec.md §6 ("optional CLI positional
// argument: server port, default 3000").
func Load(args []string) (*Runtime, error) {
	rt := &Runtime{
		Port:     "3000",
		PoolSize: runtime.NumCPU(),
	}

	if v := os.Getenv("PORT"); v != "" {
		rt.Port = v
	}
	if len(args) > 0 && args[0] != "" {
		rt.Port = args[0]
	}

	if v := os.Getenv("RAYON_NUM_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: RAYON_NUM_THREADS must be a positive integer, got %q", v)
		}
		rt.PoolSize = n
	}

	rt.RateRPS = 50
	if v := os.Getenv("SOLVE_RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("config: SOLVE_RATE_RPS must be a positive number, got %q", v)
		}
		rt.RateRPS = f
	}
	rt.RateBurst = 10
	if v := os.Getenv("SOLVE_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: SOLVE_RATE_BURST must be a positive integer, got %q", v)
		}
		rt.RateBurst = n
	}

	rt.DatabaseURL = os.Getenv("DATABASE_URL")
	rt.RedisURL = os.Getenv("REDIS_URL")
	rt.DefaultPolicy = "minimizer"

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading CONFIG_FILE %q: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("config: parsing CONFIG_FILE %q: %w", path, err)
		}
		if fc.DefaultCosts != nil {
			rt.DefaultCosts = fc.DefaultCosts
		}
		if fc.DefaultPolicy != "" {
			rt.DefaultPolicy = fc.DefaultPolicy
		}
	}

	return rt, nil
}
