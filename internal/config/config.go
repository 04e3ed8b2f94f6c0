// Package config provides configuration loading and validation for the advisor_state binary.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from the environment or Defaults.
type Config struct {
	// Storage
	DatabaseURL    string `json:"database_url,omitempty"`                                // postgres://, postgresql://, sqlite:// or file: URL
	StoreTimeoutMS int    `json:"store_timeout_ms,omitempty" validate:"gte=0,lte=300000"` // Per-call store timeout
	DBMaxConns     int    `json:"db_max_conns,omitempty" validate:"gte=0,lte=1000"`       // Postgres pool size

	// Serving
	HTTPPort          int `json:"http_port,omitempty" validate:"gte=0,lte=65535"`           // HTTP listen port
	ShutdownTimeoutMS int `json:"shutdown_timeout_ms,omitempty" validate:"gte=0,lte=600000"` // Graceful shutdown budget

	// Behavior
	ValidatePayloads  bool   `json:"validate_payloads,omitempty"`   // Check appended state against the AgentState schema
	ConsentPolicyPath string `json:"consent_policy_path,omitempty"` // Rego policy overriding the embedded one
	Verbose           bool   `json:"verbose,omitempty"`             // Print detailed debug information
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DatabaseURL:       "sqlite://data/pathway_advisor.db",
		StoreTimeoutMS:    10000,
		DBMaxConns:        10,
		HTTPPort:          8080,
		ShutdownTimeoutMS: 10000,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: the optional JSON file, overlaid
// by environment variables, with remaining gaps filled from Defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.DatabaseURL != "" && !supportedURL(c.DatabaseURL) {
		return fmt.Errorf("config error: 'database_url' must use postgres://, postgresql://, sqlite:// or file:")
	}

	if c.ConsentPolicyPath != "" {
		if _, err := os.Stat(c.ConsentPolicyPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: consent policy file not found: %s", c.ConsentPolicyPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ConsentPolicyPath == "" {
		result.ConsentPolicyPath = defaults.ConsentPolicyPath
	}

	// Int fields: use default if zero
	if result.StoreTimeoutMS == 0 {
		result.StoreTimeoutMS = defaults.StoreTimeoutMS
	}
	if result.DBMaxConns == 0 {
		result.DBMaxConns = defaults.DBMaxConns
	}
	if result.HTTPPort == 0 {
		result.HTTPPort = defaults.HTTPPort
	}
	if result.ShutdownTimeoutMS == 0 {
		result.ShutdownTimeoutMS = defaults.ShutdownTimeoutMS
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// StoreTimeout is the per-call store timeout.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// ShutdownTimeout is the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func supportedURL(url string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite://", "file:"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
