package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	smokeRole        string
	smokeConcurrency int
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Exercise the store end to end",
	Long: `Create a session and a run, append a role_intake entry and read it back.
With --concurrency N, N further entries are appended in parallel and the
history is checked to hold every one of them.`,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeRole, "role", "Software Engineer", "Desired role for the smoke run")
	smokeCmd.Flags().IntVar(&smokeConcurrency, "concurrency", 0, "Number of concurrent appends to issue after the first")
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if smokeConcurrency < 0 {
		return fmt.Errorf("--concurrency must be >= 0")
	}

	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	sess, err := svc.CreateSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	run, err := svc.CreateRun(ctx, sess.ID, smokeRole, "")
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if _, err := svc.Append(ctx, sess.ID, run.ID, types.StepRoleIntake, map[string]any{"ok": true}, false); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	if smokeConcurrency > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < smokeConcurrency; i++ {
			g.Go(func() error {
				_, err := svc.Append(gctx, sess.ID, run.ID, types.StepEvidenceIngestion, map[string]any{"worker": i}, false)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("concurrent append: %w", err)
		}

		history, err := svc.History(ctx, sess.ID, run.ID)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		if want := smokeConcurrency + 1; len(history) != want {
			return fmt.Errorf("history holds %d entries, want %d", len(history), want)
		}
		fmt.Fprintf(out, "entries: %d\n", len(history))
	}

	latest, err := svc.Latest(ctx, sess.ID, run.ID)
	if err != nil {
		return fmt.Errorf("latest: %w", err)
	}
	if latest == nil {
		return fmt.Errorf("latest returned no entry after append")
	}

	fmt.Fprintln(out, "session_id:", sess.ID)
	fmt.Fprintln(out, "run_id:", run.ID)
	fmt.Fprintln(out, "latest:", latest.Step, latest.State)
	return nil
}
