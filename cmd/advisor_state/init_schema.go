package main

import (
	"context"
	"fmt"

	"github.com/jonathan/pathway-advisor/internal/storage"
	"github.com/spf13/cobra"
)

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create tables and indexes in the configured store",
	Long:  `Apply the idempotent schema to the store. Safe to run repeatedly.`,
	RunE:  runInitSchema,
}

func init() {
	rootCmd.AddCommand(initSchemaCmd)
}

func runInitSchema(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	backend, _, err := storage.Detect(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL, storage.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema applied (%s)\n", backend)
	return nil
}
