package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/observability"
	"github.com/spf13/cobra"
)

var (
	stateSessionID string
	stateRunID     string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect a run's state log",
}

var stateLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent entry of a run",
	RunE:  runStateLatest,
}

var stateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print every entry of a run in creation order",
	RunE:  runStateHistory,
}

var stateProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Print which pipeline steps a run has completed",
	RunE:  runStateProgress,
}

func init() {
	stateCmd.PersistentFlags().StringVar(&stateSessionID, "session", "", "Owning session ID (required)")
	stateCmd.PersistentFlags().StringVar(&stateRunID, "run", "", "Run ID (required)")
	_ = stateCmd.MarkPersistentFlagRequired("session")
	_ = stateCmd.MarkPersistentFlagRequired("run")

	stateCmd.AddCommand(stateLatestCmd, stateHistoryCmd, stateProgressCmd)
	rootCmd.AddCommand(stateCmd)
}

// stateTarget parses the --session and --run flags.
func stateTarget() (uuid.UUID, uuid.UUID, error) {
	sid, err := uuid.Parse(stateSessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --session: %w", err)
	}
	rid, err := uuid.Parse(stateRunID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --run: %w", err)
	}
	return sid, rid, nil
}

func runStateLatest(cmd *cobra.Command, _ []string) error {
	sid, rid, err := stateTarget()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := svc.Latest(ctx, sid, rid)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No entries yet")
		return nil
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintEntry(entry)
	return nil
}

func runStateHistory(cmd *cobra.Command, _ []string) error {
	sid, rid, err := stateTarget()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := svc.History(ctx, sid, rid)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintHistory(entries)
	return nil
}

func runStateProgress(cmd *cobra.Command, _ []string) error {
	sid, rid, err := stateTarget()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	progress, err := svc.Progress(ctx, sid, rid)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRunProgress(progress)
	return nil
}
