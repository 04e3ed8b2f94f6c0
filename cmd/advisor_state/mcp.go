package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/mcpserver"
	"github.com/spf13/cobra"
)

// version is reported to MCP clients.
var version = "dev"

var mcpDisabledTools []string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the state tools over MCP stdio",
	Long: `Serve session, run state, evidence and role tools to an agent orchestrator over
MCP on stdin/stdout. Logs go to stderr so they never corrupt the protocol stream.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringSliceVar(&mcpDisabledTools, "disable", nil, "Tool names to leave unregistered")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	if unknown := mcpserver.ValidateDisabledTools(mcpDisabledTools); len(unknown) > 0 {
		return fmt.Errorf("unknown tools in --disable: %v (known: %v)", unknown, mcpserver.AllToolNames())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := log.New(os.Stderr, "", log.LstdFlags)
	log.SetOutput(os.Stderr)

	svc, store, err := openService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := consent.LoadEngine(ctx, cfg.ConsentPolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load consent policy: %w", err)
	}

	return mcpserver.Run(svc, engine, version, mcpDisabledTools...)
}
