package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds rate limiting configuration. Clients are session IDs when the
// caller presents one, otherwise IPs; Exempt and Blocked list either form.
type Config struct {
	Enabled       bool
	Default       Rule // applied to requests no rule matches; one bucket per client and method
	Rules         []Rule
	IdleTTL       time.Duration // buckets unused this long are dropped
	SweepInterval time.Duration
	Exempt        map[string]bool
	Blocked       map[string]bool
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Default:       Rule{Limit: 1000, Window: time.Minute},
		Rules:         DefaultRules(),
		IdleTTL:       time.Hour,
		SweepInterval: 5 * time.Minute,
		Exempt:        map[string]bool{},
		Blocked:       map[string]bool{},
	}
}

// FromEnv returns DefaultConfig overridden by RATE_LIMIT_* environment variables.
// Malformed values are ignored.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool("RATE_LIMIT_ENABLED", cfg.Enabled)
	cfg.Default.Limit = envInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.Default.Limit)
	cfg.Default.Window = envDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.Default.Window)
	cfg.IdleTTL = envDuration("RATE_LIMIT_IDLE_TTL", cfg.IdleTTL)
	cfg.SweepInterval = envDuration("RATE_LIMIT_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.Exempt = envSet("RATE_LIMIT_EXEMPT")
	cfg.Blocked = envSet("RATE_LIMIT_BLOCKED")
	return cfg
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// envSet parses a comma-separated list.
func envSet(key string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}
