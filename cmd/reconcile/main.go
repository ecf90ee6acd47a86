package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"courier-sync/internal/app"
	"courier-sync/internal/core/config"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/reconcile/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts domain.RunOptions

	cmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Run one courier status reconciliation and print the report",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.BatchSize < 0 || opts.Concurrency < 0 {
				return fmt.Errorf("--batch-size and --concurrency must not be negative")
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "restrict the run to one tenant")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "max orders per tenant (default SYNC_BATCH_SIZE)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max simultaneous provider calls per tenant (default SYNC_CONCURRENCY)")
	return cmd
}

func run(parent context.Context, opts domain.RunOptions) error {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		return err
	}
	defer logger.Sync()
	l := logger.Get()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Open(ctx, cfg)
	if err != nil {
		l.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer application.Close()

	report, err := application.Orchestrator.RunOnce(ctx, opts)
	if err != nil {
		l.Error("Reconciliation run failed", zap.Error(err))
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
