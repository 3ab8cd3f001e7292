// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package storetest starts throwaway PostgreSQL containers for integration
// suites.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/devcollab/devcollab/internal/store"
)

// Image is the PostgreSQL image used by integration suites.
const Image = "postgres:18-alpine"

// Env is a running database with a pool. The schema is migrated when it was
// started with migrate set.
type Env struct {
	DSN       string
	Pool      *pgxpool.Pool
	container testcontainers.Container
}

// Start runs a PostgreSQL container, optionally applies every migration, and
// opens a pool against it.
func Start(ctx context.Context, migrate bool) (*Env, error) {
	container, err := postgres.Run(ctx,
		Image,
		postgres.WithDatabase("devcollab_test"),
		postgres.WithUsername("devcollab"),
		postgres.WithPassword("devcollab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start container").Wrap(err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, oops.With("operation", "connection string").Wrap(err)
	}

	if migrate {
		if err := migrateUp(dsn); err != nil {
			_ = container.Terminate(ctx)
			return nil, err
		}
	}

	pool, err := store.Open(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Env{DSN: dsn, Pool: pool, container: container}, nil
}

// Truncate empties tables between specs.
func (e *Env) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := e.Pool.Exec(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
			return oops.With("table", table).Wrap(err)
		}
	}
	return nil
}

// Close releases the pool and terminates the container.
func (e *Env) Close(ctx context.Context) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(ctx)
	}
}

func migrateUp(dsn string) error {
	m, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
