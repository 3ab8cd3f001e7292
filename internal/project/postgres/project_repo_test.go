// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/project"
	"github.com/devcollab/devcollab/pkg/errutil"
)

var projectCols = []string{
	"id", "name", "description", "repository_url", "owner_id",
	"is_private", "tags", "version", "created_at", "updated_at",
}

var collaboratorCols = []string{"project_id", "identity_id", "role", "added_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func testProject() *project.Project {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &project.Project{
		ID:            ulid.Make(),
		Name:          "devcollab",
		Description:   "collaboration hub",
		RepositoryURL: "https://example.com/devcollab.git",
		OwnerID:       ulid.Make(),
		Tags:          []string{"go"},
		Collaborators: []access.Collaborator{{IdentityID: ulid.Make(), Role: access.RoleContributor, AddedAt: now}},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func projectRow(rows *pgxmock.Rows, p *project.Project) *pgxmock.Rows {
	return rows.AddRow(p.ID.String(), p.Name, p.Description, p.RepositoryURL, p.OwnerID.String(),
		p.IsPrivate, p.Tags, p.Version, p.CreatedAt, p.UpdatedAt)
}

func TestProjectRepository_Create(t *testing.T) {
	mock := newMock(t)
	p := testProject()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO projects`).
		WithArgs(p.ID.String(), p.Name, p.Description, p.RepositoryURL, p.OwnerID.String(),
			p.IsPrivate, p.Tags, p.Version, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO project_collaborators`).
		WithArgs(p.ID.String(),
			[]string{p.Collaborators[0].IdentityID.String()},
			[]string{"contributor"},
			[]time.Time{p.Collaborators[0].AddedAt}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, NewProjectRepository(mock).Create(context.Background(), p))
}

func TestProjectRepository_CreateRollsBackOnCollaboratorFailure(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO project_collaborators`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := NewProjectRepository(mock).Create(context.Background(), testProject())
	errutil.AssertErrorCode(t, err, "PROJECT_COLLABORATORS_FAILED")
}

func TestProjectRepository_Get(t *testing.T) {
	t.Run("with collaborators", func(t *testing.T) {
		mock := newMock(t)
		p := testProject()
		c := p.Collaborators[0]

		mock.ExpectQuery(`FROM projects WHERE id = \$1`).
			WithArgs(p.ID.String()).
			WillReturnRows(projectRow(pgxmock.NewRows(projectCols), p))
		mock.ExpectQuery(`FROM project_collaborators`).
			WithArgs([]string{p.ID.String()}).
			WillReturnRows(pgxmock.NewRows(collaboratorCols).
				AddRow(p.ID.String(), c.IdentityID.String(), "contributor", c.AddedAt))

		got, err := NewProjectRepository(mock).Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM projects`).WillReturnError(pgx.ErrNoRows)

		_, err := NewProjectRepository(mock).Get(context.Background(), ulid.Make())
		assert.ErrorIs(t, err, errutil.ErrNotFound)
	})
}

func TestProjectRepository_ListOwnedBy(t *testing.T) {
	mock := newMock(t)
	first, second := testProject(), testProject()
	second.OwnerID = first.OwnerID
	second.Collaborators = []access.Collaborator{}

	rows := pgxmock.NewRows(projectCols)
	projectRow(rows, first)
	projectRow(rows, second)
	mock.ExpectQuery(`WHERE owner_id = \$1\s+ORDER BY updated_at DESC`).
		WithArgs(first.OwnerID.String()).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM project_collaborators`).
		WithArgs([]string{first.ID.String(), second.ID.String()}).
		WillReturnRows(pgxmock.NewRows(collaboratorCols).
			AddRow(first.ID.String(), first.Collaborators[0].IdentityID.String(), "contributor", first.Collaborators[0].AddedAt))

	got, err := NewProjectRepository(mock).ListOwnedBy(context.Background(), first.OwnerID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Len(t, got[0].Collaborators, 1)
	assert.Empty(t, got[1].Collaborators)
}

func TestProjectRepository_ListCollaboratingWithEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`JOIN project_collaborators`).WillReturnRows(pgxmock.NewRows(projectCols))

	got, err := NewProjectRepository(mock).ListCollaboratingWith(context.Background(), ulid.Make())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProjectRepository_Update(t *testing.T) {
	t.Run("matching version", func(t *testing.T) {
		mock := newMock(t)
		p := testProject()
		p.Version = 2

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE projects`).
			WithArgs(p.ID.String(), int64(1), p.Name, p.Description, p.RepositoryURL,
				p.IsPrivate, p.Tags, int64(2), p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`DELETE FROM project_collaborators`).
			WithArgs(p.ID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`INSERT INTO project_collaborators`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, NewProjectRepository(mock).Update(context.Background(), p, 1))
	})

	t.Run("stale version", func(t *testing.T) {
		mock := newMock(t)
		p := testProject()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE projects`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(p.ID.String()).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := NewProjectRepository(mock).Update(context.Background(), p, 1)
		assert.ErrorIs(t, err, project.ErrVersionConflict)
	})

	t.Run("deleted project", func(t *testing.T) {
		mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE projects`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := NewProjectRepository(mock).Update(context.Background(), testProject(), 1)
		assert.ErrorIs(t, err, errutil.ErrNotFound)
		assert.NotErrorIs(t, err, project.ErrVersionConflict)
	})
}

func TestProjectRepository_Delete(t *testing.T) {
	mock := newMock(t)
	id := ulid.Make()
	mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM projects`).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewProjectRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), errutil.ErrNotFound)
}
