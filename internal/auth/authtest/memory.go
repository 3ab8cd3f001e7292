// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package authtest provides in-memory and mock implementations of the auth
// storage and delivery contracts for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// Store is an in-memory identity and reset store. InTransaction serializes
// transactions and restores a snapshot when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	identities map[ulid.ULID]auth.Identity
	resets     map[ulid.ULID]auth.PasswordReset
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		identities: make(map[ulid.ULID]auth.Identity),
		resets:     make(map[ulid.ULID]auth.PasswordReset),
	}
}

// Identities returns the store as an auth.IdentityRepository.
func (s *Store) Identities() auth.IdentityRepository { return identityRepo{s} }

// Resets returns the store as an auth.PasswordResetRepository.
func (s *Store) Resets() auth.PasswordResetRepository { return resetRepo{s} }

// InTransaction implements auth.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	identities := make(map[ulid.ULID]auth.Identity, len(s.identities))
	for k, v := range s.identities {
		identities[k] = v
	}
	resets := make(map[ulid.ULID]auth.PasswordReset, len(s.resets))
	for k, v := range s.resets {
		resets[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.identities = identities
		s.resets = resets
		s.mu.Unlock()
		return err
	}
	return nil
}

// ResetsFor returns the stored resets of an identity.
func (s *Store) ResetsFor(identityID ulid.ULID) []auth.PasswordReset {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.PasswordReset
	for _, r := range s.resets {
		if r.IdentityID == identityID {
			out = append(out, r)
		}
	}
	return out
}

// PutReset stores r as is, bypassing supersession. Tests use it to seed
// expired or duplicate rows.
func (s *Store) PutReset(r auth.PasswordReset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[r.ID] = r
}

// ResetCount returns the number of stored resets.
func (s *Store) ResetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resets)
}

type identityRepo struct{ s *Store }

func (r identityRepo) Create(_ context.Context, identity *auth.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.identities {
		if existing.Email == auth.NormalizeEmail(identity.Email) {
			return oops.Code("IDENTITY_EMAIL_EXISTS").Wrap(errutil.ErrConflict)
		}
	}
	r.s.identities[identity.ID] = *identity
	return nil
}

func (r identityRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &identity, nil
}

func (r identityRepo) GetByEmail(_ context.Context, email string) (*auth.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = auth.NormalizeEmail(email)
	for _, identity := range r.s.identities {
		if identity.Email == email {
			return &identity, nil
		}
	}
	return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r identityRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return oops.Code("IDENTITY_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = time.Now()
	r.s.identities[id] = identity
	return nil
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, reset *auth.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.resets {
		if existing.IdentityID == reset.IdentityID {
			delete(r.s.resets, id)
		}
	}
	r.s.resets[reset.ID] = *reset
	return nil
}

func (r resetRepo) ClaimByTokenHash(_ context.Context, tokenHash string, now time.Time) (*auth.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, reset := range r.s.resets {
		if reset.TokenHash == tokenHash && !reset.IsExpiredAt(now) {
			delete(r.s.resets, id)
			return &reset, nil
		}
	}
	return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r resetRepo) DeleteByIdentity(_ context.Context, identityID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, reset := range r.s.resets {
		if reset.IdentityID == identityID {
			delete(r.s.resets, id)
		}
	}
	return nil
}

func (r resetRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, reset := range r.s.resets {
		if reset.IsExpiredAt(now) {
			delete(r.s.resets, id)
			n++
		}
	}
	return n, nil
}

// Outbox records sent messages and optionally fails delivery.
type Outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	Err  error
}

// Send implements mail.Sender.
func (o *Outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (o *Outbox) Sent() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.sent...)
}

var (
	_ auth.IdentityRepository      = identityRepo{}
	_ auth.PasswordResetRepository = resetRepo{}
	_ auth.Transactor              = (*Store)(nil)
	_ mail.Sender                  = (*Outbox)(nil)
)
