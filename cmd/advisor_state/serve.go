package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/server"
	"github.com/jonathan/pathway-advisor/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the /v1 state-custody endpoints. Stops gracefully on SIGINT or SIGTERM.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to HTTP_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.HTTPPort = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := consent.LoadEngine(ctx, cfg.ConsentPolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load consent policy: %w", err)
	}

	srv := server.New(svc, engine, server.Config{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		RateLimit:       ratelimit.FromEnv(),
	})
	return srv.Start(ctx)
}
