// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/auth"
	authpg "github.com/devcollab/devcollab/internal/auth/postgres"
	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/internal/observability"
	"github.com/devcollab/devcollab/internal/project"
	projectpg "github.com/devcollab/devcollab/internal/project/postgres"
	"github.com/devcollab/devcollab/internal/store"
)

// services holds the application services built over one pool.
type services struct {
	accounts *auth.AccountService
	resets   *auth.PasswordResetService
	projects *project.Service
}

func newServices(pool store.Pool, cfg *config.Config, mailer mail.Sender, metrics *observability.Metrics, logger *slog.Logger) (*services, error) {
	identities := authpg.NewIdentityRepository(pool)
	tx := store.NewTransactor(pool)
	hasher := auth.NewArgon2idHasher()

	tokens, err := auth.NewTokenService([]byte(cfg.Session.Secret), auth.WithTokenTTL(cfg.Session.TTL))
	if err != nil {
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "tokens").Wrap(err)
	}

	accounts, err := auth.NewAccountService(identities, hasher, tokens,
		auth.WithAccountLogger(logger),
		auth.WithAccountRecorder(metrics))
	if err != nil {
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "accounts").Wrap(err)
	}

	resets, err := newResetService(pool, cfg, mailer, metrics, logger)
	if err != nil {
		return nil, err
	}

	projects, err := project.NewService(projectpg.NewProjectRepository(pool), identities, tx, access.NewEngine(),
		project.WithLogger(logger),
		project.WithRecorder(metrics))
	if err != nil {
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "projects").Wrap(err)
	}

	return &services{accounts: accounts, resets: resets, projects: projects}, nil
}

func newResetService(pool store.Pool, cfg *config.Config, mailer mail.Sender, metrics *observability.Metrics, logger *slog.Logger) (*auth.PasswordResetService, error) {
	resets, err := auth.NewPasswordResetService(
		authpg.NewIdentityRepository(pool),
		authpg.NewPasswordResetRepository(pool),
		auth.NewArgon2idHasher(),
		store.NewTransactor(pool),
		mailer,
		auth.WithClientURL(cfg.HTTP.ClientURL),
		auth.WithResetTTL(cfg.Reset.TTL),
		auth.WithResetLogger(logger),
		auth.WithResetRecorder(metrics),
	)
	if err != nil {
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "resets").Wrap(err)
	}
	return resets, nil
}
