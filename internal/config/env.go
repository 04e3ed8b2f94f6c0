package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by ApplyEnv.
const (
	EnvDatabaseURL       = "DATABASE_URL"
	EnvStoreTimeoutMS    = "STORE_TIMEOUT_MS"
	EnvDBMaxConns        = "DB_MAX_CONNS"
	EnvHTTPPort          = "HTTP_PORT"
	EnvValidatePayloads  = "VALIDATE_PAYLOADS"
	EnvConsentPolicyPath = "CONSENT_POLICY_PATH"
	EnvShutdownTimeoutMS = "SHUTDOWN_TIMEOUT_MS"
)

// ApplyEnv overwrites fields whose environment variable is set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvConsentPolicyPath); v != "" {
		c.ConsentPolicyPath = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvStoreTimeoutMS, &c.StoreTimeoutMS},
		{EnvDBMaxConns, &c.DBMaxConns},
		{EnvHTTPPort, &c.HTTPPort},
		{EnvShutdownTimeoutMS, &c.ShutdownTimeoutMS},
	}
	for _, f := range ints {
		v := os.Getenv(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", f.name, err)
		}
		*f.dst = n
	}

	if v := os.Getenv(EnvValidatePayloads); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvValidatePayloads, err)
		}
		c.ValidatePayloads = b
	}

	return nil
}
