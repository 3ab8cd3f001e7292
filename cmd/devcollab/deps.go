// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/internal/observability"
	"github.com/devcollab/devcollab/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// PoolFactory opens a connection pool.
	// Default: store.Open
	PoolFactory func(ctx context.Context, dsn string) (Pool, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(dsn string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory binds the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// MailerFactory creates the outbound mail sender.
	// Default: newMailer
	MailerFactory func(cfg config.SMTPConfig, logger *slog.Logger) (mail.Sender, error)
}

// Pool wraps the methods used from *pgxpool.Pool.
type Pool interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = func(ctx context.Context, dsn string) (Pool, error) {
			return store.Open(ctx, dsn)
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(dsn string) (Migrator, error) {
			return store.NewMigrator(dsn)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, observability.WithServerLogger(slog.Default()))
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	if out.MailerFactory == nil {
		out.MailerFactory = newMailer
	}
	return &out
}

// newMailer returns an SMTP sender when a relay is configured, and a sender
// that drops messages otherwise.
func newMailer(cfg config.SMTPConfig, logger *slog.Logger) (mail.Sender, error) {
	if !cfg.Enabled() {
		return mail.NewDiscardSender(logger), nil
	}
	return mail.NewSMTPSender(cfg.Mail())
}
