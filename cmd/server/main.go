package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/valeevte/pricetrail/internal/app"
	"github.com/valeevte/pricetrail/internal/config"
)

func main() {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pricetrail",
		Short:        "Track shopping search prices over time",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCommand(), newIngestCommand(), newCleanupCommand())
	return cmd
}

// bootstrap loads config, installs the default logger and builds the App.
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("startup: %w", err)
	}
	return a, nil
}
