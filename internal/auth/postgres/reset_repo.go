// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/store"
)

const resetColumns = `id, identity_id, token_hash, expires_at, created_at`

// PasswordResetRepository implements auth.PasswordResetRepository using
// PostgreSQL. The table holds at most one row per identity.
type PasswordResetRepository struct {
	db store.DB
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(db store.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores reset, replacing any outstanding reset for the identity.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO password_resets (`+resetColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id) DO UPDATE
		SET id = EXCLUDED.id,
		    token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`, reset.ID.String(), reset.IdentityID.String(), reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "upsert password_reset").
			With("identity_id", reset.IdentityID.String()).
			Wrap(err)
	}
	return nil
}

// ClaimByTokenHash deletes and returns the reset with tokenHash if it is
// still valid at now. Only one of several concurrent claims gets the row.
func (r *PasswordResetRepository) ClaimByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*auth.PasswordReset, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING `+resetColumns+`
	`, tokenHash, now)

	reset, err := scanReset(row)
	if store.IsNoRows(err) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_CLAIM_FAILED").Wrap(err)
	}
	return reset, nil
}

// DeleteByIdentity removes all resets for an identity. Deleting nothing is
// not an error.
func (r *PasswordResetRepository) DeleteByIdentity(ctx context.Context, identityID ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM password_resets WHERE identity_id = $1
	`, identityID.String())
	if err != nil {
		return oops.Code("RESET_DELETE_BY_IDENTITY_FAILED").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes resets expired at now and returns the count.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM password_resets WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		idStr, identityIDStr string
		reset                auth.PasswordReset
	)
	if err := row.Scan(&idStr, &identityIDStr, &reset.TokenHash, &reset.ExpiresAt, &reset.CreatedAt); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse reset id").With("id", idStr).Wrap(err)
	}
	identityID, err := ulid.Parse(identityIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse identity id").With("identity_id", identityIDStr).Wrap(err)
	}
	reset.ID = id
	reset.IdentityID = identityID
	return &reset, nil
}
