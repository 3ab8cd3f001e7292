// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/internal/observability"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// NewSweepCmd creates the sweep-resets subcommand.
func NewSweepCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-resets",
		Short: "Delete expired password reset records",
		Long: `Delete every password reset record whose expiry has passed. The serve
command does this periodically; this runs one pass and exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSweepOnce(cmd.Context(), cmd, cfg, deps.withDefaults())
		},
	}
}

func runSweepOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, deps *Deps) error {
	databaseURL, err := requireDatabaseURL(cfg)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	pool, err := deps.PoolFactory(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	// Sweeping never sends mail.
	resets, err := newResetService(pool, cfg, mail.NewDiscardSender(logger),
		observability.NewMetrics(prometheus.NewRegistry()), logger)
	if err != nil {
		return err
	}

	n, err := resets.SweepExpired(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired password reset(s)\n", n)
	return nil
}

// runSweeper calls sweep every interval until ctx is done. Failures are
// logged and retried on the next tick. A non-positive interval disables
// sweeping.
func runSweeper(ctx context.Context, interval time.Duration, sweep func(context.Context) (int64, error), metrics *observability.Metrics, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errutil.LogError(logger, "password reset sweep failed", err)
				continue
			}
			metrics.RecordResetsSwept(n)
		}
	}
}
