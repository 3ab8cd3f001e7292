// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/sethvargo/go-retry"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/auth"
	authpg "github.com/devcollab/devcollab/internal/auth/postgres"
	"github.com/devcollab/devcollab/internal/project"
	projectpg "github.com/devcollab/devcollab/internal/project/postgres"
	"github.com/devcollab/devcollab/internal/store"
	"github.com/devcollab/devcollab/internal/store/storetest"
	"github.com/devcollab/devcollab/pkg/errutil"
)

func TestProjectPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Project Postgres Integration Suite")
}

var (
	env        *storetest.Env
	identities *authpg.IdentityRepository
	projects   *projectpg.ProjectRepository
)

var _ = BeforeSuite(func() {
	var err error
	env, err = storetest.Start(context.Background(), true)
	Expect(err).NotTo(HaveOccurred())
	identities = authpg.NewIdentityRepository(env.Pool)
	projects = projectpg.NewProjectRepository(env.Pool)
})

var _ = AfterSuite(func() {
	if env != nil {
		env.Close(context.Background())
	}
})

var _ = BeforeEach(func() {
	Expect(env.Truncate(context.Background(), "project_collaborators", "projects", "identities")).To(Succeed())
})

func seedIdentity(ctx context.Context, email string) *auth.Identity {
	identity, err := auth.NewIdentity("User", email, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	Expect(err).NotTo(HaveOccurred())
	Expect(identities.Create(ctx, identity)).To(Succeed())
	return identity
}

func newProject(owner ulid.ULID, name string, at time.Time) *project.Project {
	p, err := project.New(owner, project.CreateInput{Name: name, Tags: []string{"go", "pg"}}, at)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("ProjectRepository", func() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	It("round-trips a project with tags and collaborators", func() {
		owner := seedIdentity(ctx, "owner@example.com")
		member := seedIdentity(ctx, "member@example.com")

		p := newProject(owner.ID, "alpha", now)
		p.Collaborators = []access.Collaborator{{IdentityID: member.ID, Role: access.RoleAdmin, AddedAt: now}}
		Expect(projects.Create(ctx, p)).To(Succeed())

		got, err := projects.Get(ctx, p.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("alpha"))
		Expect(got.Tags).To(Equal([]string{"go", "pg"}))
		Expect(got.Collaborators).To(HaveLen(1))
		Expect(got.Collaborators[0].Role).To(Equal(access.RoleAdmin))
		Expect(got.Collaborators[0].AddedAt.Equal(now)).To(BeTrue())
	})

	It("lists owned and collaborating projects newest first", func() {
		owner := seedIdentity(ctx, "owner@example.com")
		member := seedIdentity(ctx, "member@example.com")

		older := newProject(owner.ID, "older", now.Add(-time.Hour))
		newer := newProject(owner.ID, "newer", now)
		newer.Collaborators = []access.Collaborator{{IdentityID: member.ID, Role: access.RoleViewer, AddedAt: now}}
		Expect(projects.Create(ctx, older)).To(Succeed())
		Expect(projects.Create(ctx, newer)).To(Succeed())

		owned, err := projects.ListOwnedBy(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(owned).To(HaveLen(2))
		Expect(owned[0].Name).To(Equal("newer"))
		Expect(owned[1].Name).To(Equal("older"))

		collaborating, err := projects.ListCollaboratingWith(ctx, member.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(collaborating).To(HaveLen(1))
		Expect(collaborating[0].ID).To(Equal(newer.ID))
	})

	It("guards updates with the version", func() {
		owner := seedIdentity(ctx, "owner@example.com")
		p := newProject(owner.ID, "alpha", now)
		Expect(projects.Create(ctx, p)).To(Succeed())

		next := p.Clone()
		next.Name = "beta"
		next.Version = 2
		Expect(projects.Update(ctx, next, 1)).To(Succeed())

		stale := p.Clone()
		stale.Name = "gamma"
		stale.Version = 2
		Expect(projects.Update(ctx, stale, 1)).To(MatchError(project.ErrVersionConflict))

		got, err := projects.Get(ctx, p.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("beta"))
		Expect(got.Version).To(Equal(int64(2)))
	})

	It("deletes a project with its collaborators", func() {
		owner := seedIdentity(ctx, "owner@example.com")
		member := seedIdentity(ctx, "member@example.com")
		p := newProject(owner.ID, "alpha", now)
		p.Collaborators = []access.Collaborator{{IdentityID: member.ID, Role: access.RoleViewer, AddedAt: now}}
		Expect(projects.Create(ctx, p)).To(Succeed())

		Expect(projects.Delete(ctx, p.ID)).To(Succeed())
		_, err := projects.Get(ctx, p.ID)
		Expect(err).To(MatchError(errutil.ErrNotFound))

		var n int
		Expect(env.Pool.QueryRow(ctx, `SELECT count(*) FROM project_collaborators`).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	ctx := context.Background()

	newService := func() *project.Service {
		svc, err := project.NewService(projects, identities, store.NewTransactor(env.Pool), access.NewEngine(),
			project.WithBackoff(func() retry.Backoff {
				return retry.WithMaxRetries(20, retry.NewConstant(5*time.Millisecond))
			}))
		Expect(err).NotTo(HaveOccurred())
		return svc
	}

	It("keeps every concurrent collaborator add", func() {
		svc := newService()
		owner := seedIdentity(ctx, "owner@example.com")
		p, err := svc.Create(ctx, owner.ID, project.CreateInput{Name: "alpha"})
		Expect(err).NotTo(HaveOccurred())

		const n = 5
		for i := range n {
			seedIdentity(ctx, fmt.Sprintf("member%d@example.com", i))
		}

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = svc.AddCollaborator(ctx, owner.ID, p.ID, fmt.Sprintf("member%d@example.com", i), "contributor")
			}()
		}
		wg.Wait()
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		got, err := svc.Get(ctx, owner.ID, p.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Collaborators).To(HaveLen(n))
		Expect(got.Version).To(Equal(int64(n + 1)))
	})

	It("hides private projects from outsiders", func() {
		svc := newService()
		owner := seedIdentity(ctx, "owner@example.com")
		outsider := seedIdentity(ctx, "outsider@example.com")
		p, err := svc.Create(ctx, owner.ID, project.CreateInput{Name: "secret", IsPrivate: true})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Get(ctx, outsider.ID, p.ID)
		Expect(errutil.KindOf(err)).To(Equal(errutil.KindUnauthorized))
	})
})
