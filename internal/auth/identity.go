// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// Password policy.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
)

// Identity field limits.
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// Identity is a registered principal.
type Identity struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewIdentity validates name and email and creates an Identity with a fresh ID.
func NewIdentity(name, email, passwordHash string) (*Identity, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if err := ValidateIdentityFields(name, email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("IDENTITY_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Identity{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateIdentityFields checks the display name and email address.
func ValidateIdentityFields(name, email string) error {
	err := validation.Errors{
		"name":  validation.Validate(name, validation.Required, validation.RuneLength(1, MaxNameLength)),
		"email": validation.Validate(email, validation.Required, validation.Length(3, MaxEmailLength), is.Email),
	}.Filter()
	if err != nil {
		return oops.Code("IDENTITY_INVALID").
			Public(err.Error()).
			Wrapf(errutil.ErrInvalidArgument, "invalid identity: %s", err.Error())
	}
	return nil
}

// ValidatePassword checks a candidate password against the password policy.
// The password itself never appears in the returned error.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return oops.Code("PASSWORD_EMPTY").
			Public("password is required").
			Wrap(errutil.ErrInvalidArgument)
	case len(password) < MinPasswordLength:
		return oops.Code("PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Public("password must be at least 6 characters").
			Wrap(errutil.ErrInvalidArgument)
	case len(password) > MaxPasswordLength:
		return oops.Code("PASSWORD_TOO_LONG").
			With("max", MaxPasswordLength).
			Public("password must be at most 128 characters").
			Wrap(errutil.ErrInvalidArgument)
	}
	return nil
}

// IdentityRepository manages identity persistence.
type IdentityRepository interface {
	// Create stores a new identity. Returns an error wrapping
	// errutil.ErrConflict if the email is already registered.
	Create(ctx context.Context, identity *Identity) error

	// GetByID retrieves an identity by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Identity, error)

	// GetByEmail retrieves an identity by email (case-insensitive).
	// Returns ErrNotFound if no identity has the given email.
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// UpdatePassword replaces the password hash for an identity.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
