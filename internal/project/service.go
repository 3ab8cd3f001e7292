// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package project

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// Default retry policy for version conflicts.
const (
	DefaultMaxRetries  = 3
	DefaultRetryBase   = 10 * time.Millisecond
	DefaultRetryJitter = 5 * time.Millisecond
)

// Transactor runs fn inside a store transaction carried by ctx.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdentityDirectory resolves collaborator emails to identities.
type IdentityDirectory interface {
	GetByEmail(ctx context.Context, email string) (*auth.Identity, error)
}

// EventRecorder receives project operation outcomes for metrics.
type EventRecorder interface {
	RecordProjectEvent(action, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordProjectEvent(string, string) {}

// Listing groups the projects visible to one identity.
type Listing struct {
	Owned        []*Project
	Collaborated []*Project
}

// Service implements project CRUD and collaborator management.
type Service struct {
	repo       Repository
	identities IdentityDirectory
	tx         Transactor
	engine     *access.Engine
	backoff    func() retry.Backoff
	now        func() time.Time
	logger     *slog.Logger
	recorder   EventRecorder
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r EventRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithBackoff sets the factory for the version-conflict retry policy. A new
// backoff is created for every call since backoffs are stateful.
func WithBackoff(fn func() retry.Backoff) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.backoff = fn
		}
	}
}

// DefaultBackoff returns exponential backoff with jitter, bounded to
// DefaultMaxRetries retries.
func DefaultBackoff() retry.Backoff {
	b := retry.NewExponential(DefaultRetryBase)
	b = retry.WithJitter(DefaultRetryJitter, b)
	return retry.WithMaxRetries(DefaultMaxRetries, b)
}

// NewService creates a new project Service.
func NewService(repo Repository, identities IdentityDirectory, tx Transactor, engine *access.Engine, opts ...ServiceOption) (*Service, error) {
	switch {
	case repo == nil:
		return nil, oops.Errorf("project repository is required")
	case identities == nil:
		return nil, oops.Errorf("identity directory is required")
	case tx == nil:
		return nil, oops.Errorf("transactor is required")
	case engine == nil:
		return nil, oops.Errorf("access engine is required")
	}

	s := &Service{
		repo:       repo,
		identities: identities,
		tx:         tx,
		engine:     engine,
		backoff:    DefaultBackoff,
		now:        time.Now,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create stores a new project owned by actor.
func (s *Service) Create(ctx context.Context, actor ulid.ULID, in CreateInput) (*Project, error) {
	p, err := New(actor, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, oops.Code("PROJECT_CREATE_FAILED").
			With("owner_id", actor.String()).
			Wrap(err)
	}
	s.recorder.RecordProjectEvent("create", "success")
	s.logger.InfoContext(ctx, "project created",
		"project_id", p.ID.String(), "owner_id", actor.String())
	return p, nil
}

// Get returns a project actor may read. A denied read is Unauthorized.
func (s *Service) Get(ctx context.Context, actor, id ulid.ULID) (*Project, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, p, access.ActionProjectRead); err != nil {
		return nil, err
	}
	return p, nil
}

// ListForIdentity returns the projects actor owns and those it collaborates
// on, each most recently updated first.
func (s *Service) ListForIdentity(ctx context.Context, actor ulid.ULID) (Listing, error) {
	owned, err := s.repo.ListOwnedBy(ctx, actor)
	if err != nil {
		return Listing{}, oops.Code("PROJECT_LIST_FAILED").
			With("operation", "ListOwnedBy").
			With("identity_id", actor.String()).
			Wrap(err)
	}
	collaborated, err := s.repo.ListCollaboratingWith(ctx, actor)
	if err != nil {
		return Listing{}, oops.Code("PROJECT_LIST_FAILED").
			With("operation", "ListCollaboratingWith").
			With("identity_id", actor.String()).
			Wrap(err)
	}
	return Listing{Owned: owned, Collaborated: collaborated}, nil
}

// Update applies a partial update to a project.
func (s *Service) Update(ctx context.Context, actor, id ulid.ULID, in UpdateInput) (*Project, error) {
	return s.mutate(ctx, actor, id, access.ActionProjectUpdate, "update", func(p *Project) error {
		return p.Apply(in)
	})
}

// Delete removes a project. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, actor, id ulid.ULID) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actor, p, access.ActionProjectDelete); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, errutil.ErrNotFound) {
				return errProjectNotFound(id, err)
			}
			return oops.Code("PROJECT_DELETE_FAILED").
				With("project_id", id.String()).
				Wrap(err)
		}
		return nil
	})
	s.record("delete", err)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "project deleted",
		"project_id", id.String(), "actor_id", actor.String())
	return nil
}

// AddCollaborator adds the identity registered under email. An empty role
// means access.DefaultRole.
func (s *Service) AddCollaborator(ctx context.Context, actor, id ulid.ULID, email, role string) (*Project, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code("COLLABORATOR_EMAIL_REQUIRED").
			Public("collaborator email is required").
			Wrap(errutil.ErrInvalidArgument)
	}
	r := access.Role(role)
	if role != "" {
		parsed, err := access.ParseRole(role)
		if err != nil {
			return nil, err
		}
		r = parsed
	}

	return s.mutate(ctx, actor, id, access.ActionCollaboratorAdd, "collaborator_add", func(p *Project) error {
		identity, err := s.identities.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, errutil.ErrNotFound) {
				return oops.Code("COLLABORATOR_USER_NOT_FOUND").
					Public("user not found").
					Wrap(err)
			}
			return oops.Code("COLLABORATOR_ADD_FAILED").
				With("operation", "GetByEmail").
				Wrap(err)
		}
		next, err := p.State().AddCollaborator(identity.ID, r, s.now())
		if err != nil {
			return err
		}
		p.Collaborators = next.Collaborators
		return nil
	})
}

// RemoveCollaborator removes a collaborator from a project.
func (s *Service) RemoveCollaborator(ctx context.Context, actor, id, collaboratorID ulid.ULID) (*Project, error) {
	return s.mutate(ctx, actor, id, access.ActionCollaboratorRemove, "collaborator_remove", func(p *Project) error {
		next, err := p.State().RemoveCollaborator(collaboratorID)
		if err != nil {
			return err
		}
		p.Collaborators = next.Collaborators
		return nil
	})
}

// ChangeCollaboratorRole replaces a collaborator's role. Only the owner may
// change roles.
func (s *Service) ChangeCollaboratorRole(ctx context.Context, actor, id, collaboratorID ulid.ULID, role string) (*Project, error) {
	r, err := access.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, access.ActionCollaboratorRole, "collaborator_role", func(p *Project) error {
		next, err := p.State().ChangeRole(collaboratorID, r)
		if err != nil {
			return err
		}
		p.Collaborators = next.Collaborators
		return nil
	})
}

// mutate runs read → authorize → apply → version-guarded write in one
// transaction, retrying from a fresh read when the version moved.
func (s *Service) mutate(ctx context.Context, actor, id ulid.ULID, action access.Action, event string, apply func(*Project) error) (*Project, error) {
	var result *Project
	attempt := 0

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
			current, err := s.load(ctx, id)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, actor, current, action); err != nil {
				return err
			}

			next := current.Clone()
			if err := apply(next); err != nil {
				return err
			}
			next.Version = current.Version + 1
			next.UpdatedAt = s.now()

			if err := s.repo.Update(ctx, next, current.Version); err != nil {
				if errors.Is(err, ErrVersionConflict) {
					return err
				}
				if errors.Is(err, errutil.ErrNotFound) {
					return errProjectNotFound(id, err)
				}
				return oops.Code("PROJECT_UPDATE_FAILED").
					With("project_id", id.String()).
					With("action", action.String()).
					Wrap(err)
			}
			result = next
			return nil
		})
		if errors.Is(err, ErrVersionConflict) {
			s.logger.DebugContext(ctx, "project version conflict, retrying",
				"project_id", id.String(), "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, ErrVersionConflict) {
		err = oops.Code("PROJECT_VERSION_CONFLICT").
			With("project_id", id.String()).
			With("attempts", attempt).
			Public("project was modified concurrently, try again").
			Wrap(err)
	}

	s.record(event, err)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "project updated",
		"project_id", id.String(),
		"action", action.String(),
		"actor_id", actor.String(),
		"version", result.Version)
	return result, nil
}

func (s *Service) load(ctx context.Context, id ulid.ULID) (*Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errutil.ErrNotFound) {
			return nil, errProjectNotFound(id, err)
		}
		return nil, oops.Code("PROJECT_GET_FAILED").
			With("project_id", id.String()).
			Wrap(err)
	}
	return p, nil
}

func (s *Service) authorize(ctx context.Context, actor ulid.ULID, p *Project, action access.Action) error {
	d := s.engine.Authorize(actor, p.State(), action)
	if d.IsAllowed() {
		return nil
	}
	s.logger.DebugContext(ctx, "project access denied",
		"project_id", p.ID.String(),
		"actor_id", actor.String(),
		"action", action.String(),
		"effect", d.Effect.String())
	return errDenied(p.ID, action, d)
}

func (s *Service) record(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = errutil.KindOf(err).String()
	}
	s.recorder.RecordProjectEvent(event, outcome)
}
