// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devcollab/devcollab/internal/access"
)

// Members holds the identities of a project built by NewProject.
type Members struct {
	Owner       ulid.ULID
	Admin       ulid.ULID
	Contributor ulid.ULID
	Viewer      ulid.ULID
	Outsider    ulid.ULID
}

// NewProject returns a State with an owner and one collaborator per role,
// plus an unrelated identity.
func NewProject(private bool) (access.State, Members) {
	m := Members{
		Owner:       ulid.Make(),
		Admin:       ulid.Make(),
		Contributor: ulid.Make(),
		Viewer:      ulid.Make(),
		Outsider:    ulid.Make(),
	}
	now := time.Now()
	return access.State{
		OwnerID:   m.Owner,
		IsPrivate: private,
		Collaborators: []access.Collaborator{
			{IdentityID: m.Admin, Role: access.RoleAdmin, AddedAt: now},
			{IdentityID: m.Contributor, Role: access.RoleContributor, AddedAt: now},
			{IdentityID: m.Viewer, Role: access.RoleViewer, AddedAt: now},
		},
	}, m
}
