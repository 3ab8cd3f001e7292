// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/internal/observability"
	"github.com/devcollab/devcollab/pkg/errutil"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Addr:           "127.0.0.1:0",
			ClientURL:      "http://localhost:5173",
			RequestTimeout: 10 * time.Second,
		},
		Metrics:  config.MetricsConfig{Addr: "127.0.0.1:0"},
		Log:      config.LogConfig{Format: "text", Level: "error"},
		Database: config.DatabaseConfig{URL: "postgres://localhost:5432/devcollab"},
		Session: config.SessionConfig{
			Secret: "0123456789abcdef0123456789abcdef",
			TTL:    time.Hour,
		},
		Reset: config.ResetConfig{TTL: 15 * time.Minute, SweepInterval: time.Hour},
	}
}

type mockObservabilityServer struct {
	startErr  error
	started   bool
	stopped   bool
	readiness observability.ReadinessChecker
	metrics   *observability.Metrics
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started = true
	return make(chan error), nil
}

func (m *mockObservabilityServer) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func (m *mockObservabilityServer) Addr() string { return "127.0.0.1:9100" }

func (m *mockObservabilityServer) Metrics() *observability.Metrics { return m.metrics }

type serveHarness struct {
	deps      *Deps
	obs       *mockObservabilityServer
	migrator  *fakeMigrator
	poolCalls int
	out       *bytes.Buffer
}

func newServeHarness(t *testing.T, cancel context.CancelFunc) *serveHarness {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	h := &serveHarness{
		obs:      &mockObservabilityServer{metrics: observability.NewMetrics(prometheus.NewRegistry())},
		migrator: &fakeMigrator{},
		out:      new(bytes.Buffer),
	}
	h.deps = (&Deps{
		PoolFactory: func(context.Context, string) (Pool, error) {
			h.poolCalls++
			return mock, nil
		},
		MigratorFactory: func(string) (Migrator, error) { return h.migrator, nil },
		ObservabilityServerFactory: func(_ string, readiness observability.ReadinessChecker) ObservabilityServer {
			h.obs.readiness = readiness
			return h.obs
		},
		// Cancel once bound so runServe shuts down right after startup.
		ListenerFactory: func(network, address string) (net.Listener, error) {
			ln, err := net.Listen(network, address)
			if err == nil && cancel != nil {
				cancel()
			}
			return ln, err
		},
		MailerFactory: func(_ config.SMTPConfig, logger *slog.Logger) (mail.Sender, error) {
			return mail.NewDiscardSender(logger), nil
		},
	}).withDefaults()
	return h
}

func (h *serveHarness) run(ctx context.Context, cfg *config.Config, opts *serveOptions) error {
	cmd := NewServeCmd(h.deps)
	cmd.SetOut(h.out)
	return runServe(ctx, cmd, cfg, opts, h.deps)
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := NewServeCmd(nil)
	skip, err := cmd.Flags().GetBool("skip-migrate")
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestRunServe_StartsAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newServeHarness(t, cancel)

	done := make(chan error, 1)
	go func() { done <- h.run(ctx, testConfig(), &serveOptions{}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not return after cancellation")
	}

	assert.Equal(t, []string{"up"}, h.migrator.calls)
	assert.True(t, h.migrator.closed)
	assert.Equal(t, 1, h.poolCalls)
	assert.True(t, h.obs.started)
	assert.True(t, h.obs.stopped)
	assert.NotNil(t, h.obs.readiness)
	assert.Contains(t, h.out.String(), "DevCollab started")
}

func TestRunServe_SkipMigrate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newServeHarness(t, cancel)

	require.NoError(t, h.run(ctx, testConfig(), &serveOptions{skipMigrate: true}))
	assert.Empty(t, h.migrator.calls)
}

func TestRunServe_MetricsDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newServeHarness(t, cancel)

	cfg := testConfig()
	cfg.Metrics.Addr = ""
	require.NoError(t, h.run(ctx, cfg, &serveOptions{skipMigrate: true}))
	assert.False(t, h.obs.started)
}

func TestRunServe_Failures(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		h := newServeHarness(t, nil)
		cfg := testConfig()
		cfg.Session.Secret = "short"

		err := h.run(context.Background(), cfg, &serveOptions{})
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		assert.NotContains(t, err.Error(), "short")
		assert.Zero(t, h.poolCalls)
	})

	t.Run("migration failure", func(t *testing.T) {
		h := newServeHarness(t, nil)
		h.migrator.err = errors.New("dirty database")

		err := h.run(context.Background(), testConfig(), &serveOptions{})
		errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
		assert.Zero(t, h.poolCalls)
	})

	t.Run("database unreachable", func(t *testing.T) {
		h := newServeHarness(t, nil)
		h.deps.PoolFactory = func(context.Context, string) (Pool, error) {
			return nil, errors.New("connection refused")
		}

		err := h.run(context.Background(), testConfig(), &serveOptions{skipMigrate: true})
		errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
	})

	t.Run("observability server fails to start", func(t *testing.T) {
		h := newServeHarness(t, nil)
		h.obs.startErr = errors.New("address in use")

		err := h.run(context.Background(), testConfig(), &serveOptions{skipMigrate: true})
		errutil.AssertErrorCode(t, err, "SERVE_INIT_FAILED")
	})

	t.Run("http listener fails", func(t *testing.T) {
		h := newServeHarness(t, nil)
		h.deps.ListenerFactory = func(string, string) (net.Listener, error) {
			return nil, errors.New("address in use")
		}

		err := h.run(context.Background(), testConfig(), &serveOptions{skipMigrate: true})
		errutil.AssertErrorCode(t, err, "HTTP_LISTEN_FAILED")
		assert.True(t, h.obs.stopped)
	})
}
