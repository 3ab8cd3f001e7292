// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package project

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// ErrVersionConflict is returned by Repository.Update when the stored version
// moved since the project was read.
var ErrVersionConflict = errors.Join(errors.New("project version changed concurrently"), errutil.ErrConflict)

func errProjectNotFound(id ulid.ULID, cause error) error {
	return oops.Code("PROJECT_NOT_FOUND").
		With("project_id", id.String()).
		Public("project not found").
		Wrap(cause)
}

var deniedMessages = map[access.Action]string{
	access.ActionProjectRead:        "you don't have access to this project",
	access.ActionProjectUpdate:      "you don't have permission to update this project",
	access.ActionProjectDelete:      "only the project owner can delete this project",
	access.ActionCollaboratorAdd:    "you don't have permission to add collaborators",
	access.ActionCollaboratorRemove: "you don't have permission to remove collaborators",
	access.ActionCollaboratorRole:   "only the project owner can update collaborator roles",
}

func errDenied(id ulid.ULID, action access.Action, d access.Decision) error {
	msg, ok := deniedMessages[action]
	if !ok {
		msg = "permission denied"
	}
	return oops.Code("PROJECT_FORBIDDEN").
		With("project_id", id.String()).
		With("action", action.String()).
		With("effect", d.Effect.String()).
		Public(msg).
		Wrapf(errutil.ErrUnauthorized, "%s", d.Reason)
}
