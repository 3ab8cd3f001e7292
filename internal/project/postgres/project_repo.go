// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package postgres provides the PostgreSQL implementation of
// project.Repository.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/project"
	"github.com/devcollab/devcollab/internal/store"
	"github.com/devcollab/devcollab/pkg/errutil"
)

const projectColumns = `id, name, description, repository_url, owner_id, is_private, tags, version, created_at, updated_at`

// ProjectRepository implements project.Repository using PostgreSQL.
// Collaborators live in a child table that is rewritten on every update.
type ProjectRepository struct {
	pool store.Pool
	tx   *store.Transactor
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(pool store.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool, tx: store.NewTransactor(pool)}
}

// Create stores a new project and its collaborators.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	return r.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, err := store.Conn(ctx, r.pool).Exec(ctx, `
			INSERT INTO projects (`+projectColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			p.ID.String(),
			p.Name,
			p.Description,
			p.RepositoryURL,
			p.OwnerID.String(),
			p.IsPrivate,
			nonNilTags(p.Tags),
			p.Version,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			return oops.Code("PROJECT_CREATE_FAILED").
				With("operation", "insert project").
				With("project_id", p.ID.String()).
				Wrap(err)
		}
		return r.insertCollaborators(ctx, p)
	})
}

// Get retrieves a project with its collaborators.
func (r *ProjectRepository) Get(ctx context.Context, id ulid.ULID) (*project.Project, error) {
	conn := store.Conn(ctx, r.pool)
	p, err := scanProject(conn.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1
	`, id.String()))
	if store.IsNoRows(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, oops.Code("PROJECT_GET_FAILED").With("project_id", id.String()).Wrap(err)
	}

	if err := r.loadCollaborators(ctx, []*project.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListOwnedBy returns projects owned by identityID, most recently updated first.
func (r *ProjectRepository) ListOwnedBy(ctx context.Context, identityID ulid.ULID) ([]*project.Project, error) {
	return r.list(ctx, "list owned", `
		SELECT `+projectColumns+` FROM projects
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id
	`, identityID)
}

// ListCollaboratingWith returns projects listing identityID as a
// collaborator, most recently updated first.
func (r *ProjectRepository) ListCollaboratingWith(ctx context.Context, identityID ulid.ULID) ([]*project.Project, error) {
	return r.list(ctx, "list collaborating", `
		SELECT p.id, p.name, p.description, p.repository_url, p.owner_id, p.is_private,
		       p.tags, p.version, p.created_at, p.updated_at
		FROM projects p
		JOIN project_collaborators c ON c.project_id = p.id
		WHERE c.identity_id = $1
		ORDER BY p.updated_at DESC, p.id
	`, identityID)
}

// Update replaces the project row and its collaborators when the stored
// version equals expectedVersion.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project, expectedVersion int64) error {
	return r.tx.InTransaction(ctx, func(ctx context.Context) error {
		conn := store.Conn(ctx, r.pool)
		result, err := conn.Exec(ctx, `
			UPDATE projects
			SET name = $3, description = $4, repository_url = $5, is_private = $6,
			    tags = $7, version = $8, updated_at = $9
			WHERE id = $1 AND version = $2
		`,
			p.ID.String(),
			expectedVersion,
			p.Name,
			p.Description,
			p.RepositoryURL,
			p.IsPrivate,
			nonNilTags(p.Tags),
			p.Version,
			p.UpdatedAt,
		)
		if err != nil {
			return oops.Code("PROJECT_UPDATE_FAILED").
				With("operation", "update project").
				With("project_id", p.ID.String()).
				Wrap(err)
		}

		if result.RowsAffected() == 0 {
			var exists bool
			if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, p.ID.String()).
				Scan(&exists); err != nil {
				return oops.Code("PROJECT_UPDATE_FAILED").
					With("operation", "check project exists").
					With("project_id", p.ID.String()).
					Wrap(err)
			}
			if !exists {
				return notFound(p.ID)
			}
			return oops.With("project_id", p.ID.String()).
				With("expected_version", expectedVersion).
				Wrap(project.ErrVersionConflict)
		}

		if _, err := conn.Exec(ctx, `DELETE FROM project_collaborators WHERE project_id = $1`, p.ID.String()); err != nil {
			return oops.Code("PROJECT_UPDATE_FAILED").
				With("operation", "clear collaborators").
				With("project_id", p.ID.String()).
				Wrap(err)
		}
		return r.insertCollaborators(ctx, p)
	})
}

// Delete removes a project. Collaborators go with it by cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := store.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("PROJECT_DELETE_FAILED").With("project_id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *ProjectRepository) list(ctx context.Context, operation, query string, identityID ulid.ULID) ([]*project.Project, error) {
	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, identityID.String())
	if err != nil {
		return nil, oops.Code("PROJECT_LIST_FAILED").
			With("operation", operation).
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, oops.Code("PROJECT_LIST_FAILED").With("operation", "scan project").Wrap(err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PROJECT_LIST_FAILED").With("operation", operation).Wrap(err)
	}
	rows.Close()

	if err := r.loadCollaborators(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// loadCollaborators fills Collaborators for every project in one query.
func (r *ProjectRepository) loadCollaborators(ctx context.Context, projects []*project.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[string]*project.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		p.Collaborators = []access.Collaborator{}
		byID[p.ID.String()] = p
		ids = append(ids, p.ID.String())
	}

	rows, err := store.Conn(ctx, r.pool).Query(ctx, `
		SELECT project_id, identity_id, role, added_at
		FROM project_collaborators
		WHERE project_id = ANY($1)
		ORDER BY added_at, identity_id
	`, ids)
	if err != nil {
		return oops.Code("PROJECT_COLLABORATORS_FAILED").With("operation", "query collaborators").Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			projectID, identityID, role string
			addedAt                     time.Time
		)
		if err := rows.Scan(&projectID, &identityID, &role, &addedAt); err != nil {
			return oops.Code("PROJECT_COLLABORATORS_FAILED").With("operation", "scan collaborator").Wrap(err)
		}
		id, err := ulid.Parse(identityID)
		if err != nil {
			return oops.Code("PROJECT_COLLABORATORS_FAILED").
				With("operation", "parse identity id").
				With("identity_id", identityID).
				Wrap(err)
		}
		p, ok := byID[projectID]
		if !ok {
			continue
		}
		p.Collaborators = append(p.Collaborators, access.Collaborator{
			IdentityID: id,
			Role:       access.Role(role),
			AddedAt:    addedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return oops.Code("PROJECT_COLLABORATORS_FAILED").Wrap(err)
	}
	return nil
}

func (r *ProjectRepository) insertCollaborators(ctx context.Context, p *project.Project) error {
	if len(p.Collaborators) == 0 {
		return nil
	}
	identityIDs := make([]string, len(p.Collaborators))
	roles := make([]string, len(p.Collaborators))
	addedAt := make([]time.Time, len(p.Collaborators))
	for i, c := range p.Collaborators {
		identityIDs[i] = c.IdentityID.String()
		roles[i] = c.Role.String()
		addedAt[i] = c.AddedAt
	}

	_, err := store.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO project_collaborators (project_id, identity_id, role, added_at)
		SELECT $1, u.identity_id, u.role, u.added_at
		FROM unnest($2::text[], $3::text[], $4::timestamptz[]) AS u(identity_id, role, added_at)
	`, p.ID.String(), identityIDs, roles, addedAt)
	if err != nil {
		return oops.Code("PROJECT_COLLABORATORS_FAILED").
			With("operation", "insert collaborators").
			With("project_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var (
		idStr, ownerStr string
		p               project.Project
	)
	if err := row.Scan(
		&idStr,
		&p.Name,
		&p.Description,
		&p.RepositoryURL,
		&ownerStr,
		&p.IsPrivate,
		&p.Tags,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse project id").With("id", idStr).Wrap(err)
	}
	owner, err := ulid.Parse(ownerStr)
	if err != nil {
		return nil, oops.With("operation", "parse owner id").With("owner_id", ownerStr).Wrap(err)
	}
	p.ID = id
	p.OwnerID = owner
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func notFound(id ulid.ULID) error {
	return oops.Code("PROJECT_NOT_FOUND").
		With("project_id", id.String()).
		Wrap(errutil.ErrNotFound)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
