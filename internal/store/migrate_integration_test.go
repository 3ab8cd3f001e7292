// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/devcollab/devcollab/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(env.DSN)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		Expect(migrator.Close()).To(Succeed())
	})

	It("starts at version zero with everything pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1, 2, 3}))
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(3)))
		Expect(dirty).To(BeFalse())

		applied, err := migrator.AppliedMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(Equal([]uint{1, 2, 3}))
	})

	It("creates the tables the repositories use", func() {
		ctx := context.Background()
		for _, table := range []string{"identities", "password_resets", "projects", "project_collaborators"} {
			var exists bool
			err := env.Pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).
				Scan(&exists)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), table)
		}
	})

	It("enforces case-insensitive email uniqueness", func() {
		ctx := context.Background()
		_, err := env.Pool.Exec(ctx, `
			INSERT INTO identities (id, name, email, password_hash, created_at, updated_at)
			VALUES ('01J0000000000000000000000A', 'Ada', 'ada@example.com', 'x', now(), now())`)
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Pool.Exec(ctx, `
			INSERT INTO identities (id, name, email, password_hash, created_at, updated_at)
			VALUES ('01J0000000000000000000000B', 'Ada', 'ADA@example.com', 'x', now(), now())`)
		Expect(store.IsUniqueViolation(err)).To(BeTrue())

		_, err = env.Pool.Exec(ctx, `TRUNCATE identities CASCADE`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("steps back and forward one version", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(3)))
	})

	It("rolls everything back with Down", func() {
		Expect(migrator.Down()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("forces a version without running migrations", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Force(2)).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())
	})
})

var _ = Describe("Transactor", func() {
	It("commits and rolls back against a real database", func() {
		ctx := context.Background()
		_, err := env.Pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS tx_probe (n INT)`)
		Expect(err).NotTo(HaveOccurred())

		tr := store.NewTransactor(env.Pool)
		Expect(tr.InTransaction(ctx, func(ctx context.Context) error {
			_, err := store.Conn(ctx, env.Pool).Exec(ctx, `INSERT INTO tx_probe VALUES (1)`)
			return err
		})).To(Succeed())

		boom := errors.New("boom")
		err = tr.InTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.Conn(ctx, env.Pool).Exec(ctx, `INSERT INTO tx_probe VALUES (2)`); err != nil {
				return err
			}
			return boom
		})
		Expect(err).To(MatchError(boom))

		var count int
		Expect(env.Pool.QueryRow(ctx, `SELECT count(*) FROM tx_probe`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})
})
