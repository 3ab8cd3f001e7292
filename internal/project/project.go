// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package project manages shared projects and their collaborators.
//
// Every read and mutation passes through the access.Engine. Mutations are a
// single read-modify-write against the current project version: the project
// is loaded inside a transaction, authorized, changed through the pure
// access.State operations, and written back guarded by the version it was
// read at.
package project

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// Field limits.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 5000
	MaxRepositoryURL     = 2048
	MaxTags              = 20
	MaxTagLength         = 50
)

// Project is a shared resource owned by one identity.
type Project struct {
	ID            ulid.ULID
	Name          string
	Description   string
	RepositoryURL string
	OwnerID       ulid.ULID
	IsPrivate     bool
	Tags          []string
	Collaborators []access.Collaborator
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// State returns the access-relevant snapshot of p.
func (p *Project) State() access.State {
	return access.State{
		OwnerID:       p.OwnerID,
		IsPrivate:     p.IsPrivate,
		Collaborators: p.Collaborators,
	}
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Collaborators = slices.Clone(p.Collaborators)
	return &c
}

// CreateInput holds the fields of a new project.
type CreateInput struct {
	Name          string
	Description   string
	RepositoryURL string
	IsPrivate     bool
	Tags          []string
}

// UpdateInput holds a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name          *string
	Description   *string
	RepositoryURL *string
	IsPrivate     *bool
	Tags          []string
}

// Empty reports whether the update changes nothing.
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.RepositoryURL == nil &&
		in.IsPrivate == nil && in.Tags == nil
}

// New validates in and creates a Project owned by ownerID at version 1.
func New(ownerID ulid.ULID, in CreateInput, now time.Time) (*Project, error) {
	if ownerID.IsZero() {
		return nil, oops.Code("PROJECT_INVALID_OWNER").
			Wrapf(errutil.ErrInvalidArgument, "owner ID cannot be zero")
	}
	p := &Project{
		ID:            ulid.Make(),
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		RepositoryURL: strings.TrimSpace(in.RepositoryURL),
		OwnerID:       ownerID,
		IsPrivate:     in.IsPrivate,
		Tags:          normalizeTags(in.Tags),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply copies the set fields of in onto p and revalidates.
func (p *Project) Apply(in UpdateInput) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.RepositoryURL != nil {
		p.RepositoryURL = strings.TrimSpace(*in.RepositoryURL)
	}
	if in.IsPrivate != nil {
		p.IsPrivate = *in.IsPrivate
	}
	if in.Tags != nil {
		p.Tags = normalizeTags(in.Tags)
	}
	return p.Validate()
}

// Validate checks the editable fields.
func (p *Project) Validate() error {
	err := validation.Errors{
		"name":          validation.Validate(p.Name, validation.Required, validation.RuneLength(1, MaxNameLength)),
		"description":   validation.Validate(p.Description, validation.RuneLength(0, MaxDescriptionLength)),
		"repositoryUrl": validation.Validate(p.RepositoryURL, validation.Length(0, MaxRepositoryURL), is.URL),
		"tags": validation.Validate(p.Tags,
			validation.Length(0, MaxTags),
			validation.By(validateTags)),
	}.Filter()
	if err != nil {
		return oops.Code("PROJECT_INVALID").
			Public(err.Error()).
			Wrapf(errutil.ErrInvalidArgument, "invalid project: %s", err.Error())
	}
	return nil
}

func validateTags(value interface{}) error {
	tags, _ := value.([]string)
	for _, t := range tags {
		if utf8.RuneCountInString(t) > MaxTagLength {
			return fmt.Errorf("each tag must be at most %d characters", MaxTagLength)
		}
	}
	return nil
}

// normalizeTags trims tags and drops empty and duplicate entries.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Repository manages project persistence, including the collaborator list.
type Repository interface {
	// Create stores a new project and its collaborators.
	Create(ctx context.Context, p *Project) error

	// Get retrieves a project with its collaborators. Returns an error
	// wrapping errutil.ErrNotFound if it does not exist.
	Get(ctx context.Context, id ulid.ULID) (*Project, error)

	// ListOwnedBy returns projects owned by identityID, most recently updated first.
	ListOwnedBy(ctx context.Context, identityID ulid.ULID) ([]*Project, error)

	// ListCollaboratingWith returns projects listing identityID as a
	// collaborator, most recently updated first.
	ListCollaboratingWith(ctx context.Context, identityID ulid.ULID) ([]*Project, error)

	// Update replaces the project row and collaborator list if the stored
	// version equals expectedVersion. Returns ErrVersionConflict otherwise,
	// or an error wrapping errutil.ErrNotFound if the project is gone.
	Update(ctx context.Context, p *Project, expectedVersion int64) error

	// Delete removes a project and its collaborators.
	Delete(ctx context.Context, id ulid.ULID) error
}
