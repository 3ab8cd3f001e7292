// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package access

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// Collaborator is a non-owner member of a project.
type Collaborator struct {
	IdentityID ulid.ULID
	Role       Role
	AddedAt    time.Time
}

// State is the access-relevant snapshot of a project.
type State struct {
	OwnerID       ulid.ULID
	IsPrivate     bool
	Collaborators []Collaborator
}

// RelationOf returns the relation of identityID to the project: RelationOwner,
// the collaborator's role name, or RelationPublic.
func (s State) RelationOf(identityID ulid.ULID) string {
	if identityID.IsZero() {
		return RelationPublic
	}
	if identityID == s.OwnerID {
		return RelationOwner
	}
	if c, ok := s.Collaborator(identityID); ok {
		return string(c.Role)
	}
	return RelationPublic
}

// Collaborator returns the membership record for identityID, if any.
func (s State) Collaborator(identityID ulid.ULID) (Collaborator, bool) {
	i := s.indexOf(identityID)
	if i < 0 {
		return Collaborator{}, false
	}
	return s.Collaborators[i], true
}

// IsMember reports whether identityID is the owner or a collaborator.
func (s State) IsMember(identityID ulid.ULID) bool {
	return s.RelationOf(identityID) != RelationPublic
}

// AddCollaborator returns a copy of s with identityID added under role. An
// empty role means DefaultRole.
func (s State) AddCollaborator(identityID ulid.ULID, role Role, addedAt time.Time) (State, error) {
	if role == "" {
		role = DefaultRole
	}
	if !role.Valid() {
		return s, errInvalidRole(string(role))
	}
	if identityID.IsZero() {
		return s, oops.In("access").
			Code("COLLABORATOR_INVALID").
			Public("collaborator is required").
			Wrap(errutil.ErrInvalidArgument)
	}
	if identityID == s.OwnerID {
		return s, oops.In("access").
			Code("COLLABORATOR_IS_OWNER").
			With("identity_id", identityID.String()).
			Public("owner cannot be added as a collaborator").
			Wrap(errutil.ErrConflict)
	}
	if s.indexOf(identityID) >= 0 {
		return s, oops.In("access").
			Code("COLLABORATOR_EXISTS").
			With("identity_id", identityID.String()).
			Public("user is already a collaborator").
			Wrap(errutil.ErrConflict)
	}

	next := s.clone()
	next.Collaborators = append(next.Collaborators, Collaborator{
		IdentityID: identityID,
		Role:       role,
		AddedAt:    addedAt,
	})
	return next, nil
}

// RemoveCollaborator returns a copy of s without identityID.
func (s State) RemoveCollaborator(identityID ulid.ULID) (State, error) {
	i := s.indexOf(identityID)
	if i < 0 {
		return s, errCollaboratorNotFound(identityID)
	}
	next := s.clone()
	next.Collaborators = slices.Delete(next.Collaborators, i, i+1)
	return next, nil
}

// ChangeRole returns a copy of s with the role of identityID replaced.
func (s State) ChangeRole(identityID ulid.ULID, role Role) (State, error) {
	if !role.Valid() {
		return s, errInvalidRole(string(role))
	}
	i := s.indexOf(identityID)
	if i < 0 {
		return s, errCollaboratorNotFound(identityID)
	}
	next := s.clone()
	next.Collaborators[i].Role = role
	return next, nil
}

func (s State) indexOf(identityID ulid.ULID) int {
	return slices.IndexFunc(s.Collaborators, func(c Collaborator) bool {
		return c.IdentityID == identityID
	})
}

func (s State) clone() State {
	s.Collaborators = slices.Clone(s.Collaborators)
	return s
}

func errCollaboratorNotFound(identityID ulid.ULID) error {
	return oops.In("access").
		Code("COLLABORATOR_NOT_FOUND").
		With("identity_id", identityID.String()).
		Public("collaborator not found").
		Wrap(errutil.ErrNotFound)
}
