// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web

import (
	"time"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/project"
)

type dataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// identityView never carries the password hash.
type identityView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newIdentityView(i *auth.Identity) identityView {
	return identityView{ID: i.ID.String(), Name: i.Name, Email: i.Email}
}

type collaboratorView struct {
	User    string    `json:"user"`
	Role    string    `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

type projectView struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	RepositoryURL string             `json:"repositoryUrl"`
	Owner         string             `json:"owner"`
	IsPrivate     bool               `json:"isPrivate"`
	Tags          []string           `json:"tags"`
	Collaborators []collaboratorView `json:"collaborators"`
	Version       int64              `json:"version"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func newProjectView(p *project.Project) projectView {
	v := projectView{
		ID:            p.ID.String(),
		Name:          p.Name,
		Description:   p.Description,
		RepositoryURL: p.RepositoryURL,
		Owner:         p.OwnerID.String(),
		IsPrivate:     p.IsPrivate,
		Tags:          p.Tags,
		Collaborators: make([]collaboratorView, 0, len(p.Collaborators)),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	for _, c := range p.Collaborators {
		v.Collaborators = append(v.Collaborators, collaboratorView{
			User:    c.IdentityID.String(),
			Role:    c.Role.String(),
			AddedAt: c.AddedAt,
		})
	}
	return v
}

func newProjectViews(ps []*project.Project) []projectView {
	out := make([]projectView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProjectView(p))
	}
	return out
}

type listingView struct {
	Owned        []projectView `json:"owned"`
	Collaborated []projectView `json:"collaborated"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type createProjectRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	RepositoryURL string   `json:"repositoryUrl"`
	IsPrivate     bool     `json:"isPrivate"`
	Tags          []string `json:"tags"`
}

type updateProjectRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	RepositoryURL *string  `json:"repositoryUrl"`
	IsPrivate     *bool    `json:"isPrivate"`
	Tags          []string `json:"tags"`
}

type addCollaboratorRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}
