// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package access provides project authorization for DevCollab.
//
// Every project has exactly one owner and any number of collaborators, each
// holding one role. Roles are ordered viewer < contributor < admin. The owner
// is not a collaborator and holds every permission.
//
// Actions use the "resource:verb" format:
//   - project:read, project:update, project:delete
//   - collaborator:add, collaborator:remove, collaborator:role
//
// The Engine is pure: it decides from a State snapshot and never touches
// storage. The State mutation methods enforce the collaborator invariants at
// write time and leave the receiver unchanged on error.
package access

import (
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// Action names a guarded operation on a project.
type Action string

// Project actions.
const (
	ActionProjectRead        Action = "project:read"
	ActionProjectUpdate      Action = "project:update"
	ActionProjectDelete      Action = "project:delete"
	ActionCollaboratorAdd    Action = "collaborator:add"
	ActionCollaboratorRemove Action = "collaborator:remove"
	ActionCollaboratorRole   Action = "collaborator:role"
)

// Actions returns every known action.
func Actions() []Action {
	return []Action{
		ActionProjectRead,
		ActionProjectUpdate,
		ActionProjectDelete,
		ActionCollaboratorAdd,
		ActionCollaboratorRemove,
		ActionCollaboratorRole,
	}
}

func (a Action) String() string { return string(a) }

// Role is a collaborator's level of access.
type Role string

// Collaborator roles, lowest to highest.
const (
	RoleViewer      Role = "viewer"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// DefaultRole is assigned when a collaborator is added without a role.
const DefaultRole = RoleViewer

var roleRank = map[Role]int{
	RoleViewer:      1,
	RoleContributor: 2,
	RoleAdmin:       3,
}

// ParseRole converts s to a Role. Matching is case-sensitive on the canonical
// lowercase names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", errInvalidRole(s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the position of r in the role order, or 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(minimum Role) bool {
	return r.Valid() && r.Rank() >= minimum.Rank()
}

func (r Role) String() string { return string(r) }

func errInvalidRole(role string) error {
	return oops.In("access").
		Code("ROLE_INVALID").
		With("role", role).
		Public("invalid role").
		Wrapf(errutil.ErrInvalidArgument, "unknown role %q", role)
}
