// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package postgres provides PostgreSQL implementations of auth repositories.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/store"
	"github.com/devcollab/devcollab/pkg/errutil"
)

const identityColumns = `id, name, email, password_hash, created_at, updated_at`

// IdentityRepository implements auth.IdentityRepository using PostgreSQL.
// Calls made with a context from store.Transactor run in that transaction.
type IdentityRepository struct {
	db store.DB
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db store.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create stores a new identity. A duplicate email is a Conflict.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		identity.ID.String(),
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return oops.Code("IDENTITY_EMAIL_EXISTS").
				With("identity_id", identity.ID.String()).
				Wrap(errutil.ErrConflict)
		}
		return oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert identity").
			With("identity_id", identity.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an identity by ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Identity, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE id = $1
	`, id.String())

	identity, err := scanIdentity(row)
	if store.IsNoRows(err) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("identity_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_FAILED").With("identity_id", id.String()).Wrap(err)
	}
	return identity, nil
}

// GetByEmail retrieves an identity by email, case-insensitively.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE LOWER(email) = LOWER($1)
	`, email)

	identity, err := scanIdentity(row)
	if store.IsNoRows(err) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_FAILED").With("operation", "get by email").Wrap(err)
	}
	return identity, nil
}

// UpdatePassword replaces the password hash for an identity.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").
			With("operation", "update password").
			With("identity_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("identity_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var (
		idStr    string
		identity auth.Identity
	)
	if err := row.Scan(
		&idStr,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse identity id").With("id", idStr).Wrap(err)
	}
	identity.ID = id
	return &identity, nil
}
