package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/pathway-advisor/internal/config"
	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/schemas"
	"github.com/jonathan/pathway-advisor/internal/storage"
)

// loadConfig resolves the effective configuration. Flags win over env, which
// wins over the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// openService opens the store named by cfg, applies the schema and wraps the
// store in a custody service. The caller owns store.Close.
func openService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*custody.Service, custody.Store, error) {
	backend, _, err := storage.Detect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Verbose {
		logger.Printf("[VERBOSE] Opening %s store", backend)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL, storage.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	opts := []custody.Option{
		custody.WithTimeout(cfg.StoreTimeout()),
		custody.WithLogger(logger),
	}
	if cfg.ValidatePayloads {
		v, err := schemas.NewStateValidator()
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to load state schema: %w", err)
		}
		opts = append(opts, custody.WithPayloadValidator(v))
	}

	return custody.New(store, opts...), store, nil
}
