// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package projecttest provides an in-memory project store for tests.
package projecttest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/project"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// Store is an in-memory project.Repository and project.Transactor.
// InTransaction serializes transactions and restores a snapshot when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	projects map[ulid.ULID]*project.Project

	// interleave counts updates that will lose to a simulated concurrent writer.
	interleave int
	updates    int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{projects: make(map[ulid.ULID]*project.Project)}
}

// SimulateConcurrentWrites makes the next n calls to Update find the stored
// version already advanced by another writer.
func (s *Store) SimulateConcurrentWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interleave = n
}

// Updates returns the number of Update calls, including rejected ones.
func (s *Store) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Snapshot returns a copy of the stored project, or nil.
func (s *Store) Snapshot(id ulid.ULID) *project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil
	}
	return p.Clone()
}

// InTransaction implements project.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := make(map[ulid.ULID]*project.Project, len(s.projects))
	for k, v := range s.projects {
		saved[k] = v.Clone()
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.projects = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// Create implements project.Repository.
func (s *Store) Create(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return oops.Code("PROJECT_EXISTS").Wrap(errutil.ErrConflict)
	}
	s.projects[p.ID] = p.Clone()
	return nil
}

// Get implements project.Repository.
func (s *Store) Get(_ context.Context, id ulid.ULID) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, oops.Code("PROJECT_NOT_FOUND").Wrap(errutil.ErrNotFound)
	}
	return p.Clone(), nil
}

// ListOwnedBy implements project.Repository.
func (s *Store) ListOwnedBy(_ context.Context, identityID ulid.ULID) ([]*project.Project, error) {
	return s.list(func(p *project.Project) bool { return p.OwnerID == identityID }), nil
}

// ListCollaboratingWith implements project.Repository.
func (s *Store) ListCollaboratingWith(_ context.Context, identityID ulid.ULID) ([]*project.Project, error) {
	return s.list(func(p *project.Project) bool {
		_, ok := p.State().Collaborator(identityID)
		return ok
	}), nil
}

// Update implements project.Repository.
func (s *Store) Update(_ context.Context, p *project.Project, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++

	stored, ok := s.projects[p.ID]
	if !ok {
		return oops.Code("PROJECT_NOT_FOUND").Wrap(errutil.ErrNotFound)
	}
	if s.interleave > 0 {
		s.interleave--
		stored.Version++
	}
	if stored.Version != expectedVersion {
		return project.ErrVersionConflict
	}
	s.projects[p.ID] = p.Clone()
	return nil
}

// Delete implements project.Repository.
func (s *Store) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return oops.Code("PROJECT_NOT_FOUND").Wrap(errutil.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) list(match func(*project.Project) bool) []*project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*project.Project
	for _, p := range s.projects {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *project.Project) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out
}
