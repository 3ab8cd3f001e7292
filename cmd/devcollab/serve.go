// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/observability"
	"github.com/devcollab/devcollab/internal/web"
)

// shutdownTimeout bounds graceful shutdown of each listener.
const shutdownTimeout = 5 * time.Second

// serveOptions holds flags local to the serve command.
type serveOptions struct {
	skipMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending migrations are applied first unless
--skip-migrate is set, and expired password resets are swept periodically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg, opts, deps.withDefaults())
		},
	}

	cmd.Flags().BoolVar(&opts.skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *serveOptions, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := setupLogging(cfg)

	logger.Info("starting devcollab",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format)

	if !opts.skipMigrate {
		if err := autoMigrate(cfg.Database.URL, deps); err != nil {
			return err
		}
		logger.Info("database schema up to date")
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_INIT_FAILED").With("component", "observability").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	defer func() {
		if obsServer == nil {
			return
		}
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := obsServer.Stop(stopCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}()

	mailer, err := deps.MailerFactory(cfg.SMTP, logger)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "mailer").Wrap(err)
	}
	if !cfg.SMTP.Enabled() {
		logger.Warn("smtp.host not set, password reset mail will not be delivered")
	}

	svc, err := newServices(pool, cfg, mailer, metrics, logger)
	if err != nil {
		return err
	}

	api, err := web.NewServer(svc.accounts, svc.resets, svc.projects, web.Config{
		CookieSecure:   cfg.HTTP.CookieSecure,
		ClientURL:      cfg.HTTP.ClientURL,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, web.WithLogger(logger), web.WithRecorder(metrics))
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "http").Wrap(err)
	}

	ln, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- api.Serve(ln)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, cfg.Reset.SweepInterval, svc.resets.SweepExpired, metrics, logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("DevCollab started")
	logger.Info("devcollab ready", "http_addr", ln.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serveErr:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		serveErr = nil
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	wg.Wait()

	if serveErr != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error stopping http server", "error", err)
		}
		// Serve may not have registered the listener before Shutdown ran.
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("error closing http listener", "error", err)
		}
		<-serveErr
	}

	logger.Info("shutdown complete")
	return runErr
}

// autoMigrate applies pending migrations.
func autoMigrate(databaseURL string, deps *Deps) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel is closed or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
