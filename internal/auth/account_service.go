// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// dummyPasswordHash is verified when no identity matches the email so that
// unknown and known emails take comparable time. It matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Session is an issued session token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AccountService registers and authenticates identities.
type AccountService struct {
	identities IdentityRepository
	hasher     PasswordHasher
	tokens     *TokenService
	logger     *slog.Logger
	recorder   EventRecorder
}

// AccountServiceOption configures an AccountService.
type AccountServiceOption func(*AccountService)

// WithAccountLogger sets the logger.
func WithAccountLogger(logger *slog.Logger) AccountServiceOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccountRecorder sets the metrics recorder.
func WithAccountRecorder(r EventRecorder) AccountServiceOption {
	return func(s *AccountService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(identities IdentityRepository, hasher PasswordHasher, tokens *TokenService, opts ...AccountServiceOption) (*AccountService, error) {
	switch {
	case identities == nil:
		return nil, oops.Errorf("identity repository is required")
	case hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Errorf("token service is required")
	}

	s := &AccountService{
		identities: identities,
		hasher:     hasher,
		tokens:     tokens,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an identity and signs it in.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*Identity, Session, error) {
	email = NormalizeEmail(email)
	if err := ValidateIdentityFields(name, email); err != nil {
		return nil, Session{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, Session{}, err
	}

	if _, err := s.identities.GetByEmail(ctx, email); err == nil {
		return nil, Session{}, errEmailInUse()
	} else if !errors.Is(err, ErrNotFound) {
		return nil, Session{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, Session{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	identity, err := NewIdentity(name, email, hash)
	if err != nil {
		return nil, Session{}, err
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		// A concurrent registration can win the unique index.
		if errors.Is(err, errutil.ErrConflict) {
			return nil, Session{}, errEmailInUse()
		}
		return nil, Session{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	session, err := s.issue(identity.ID)
	if err != nil {
		return nil, Session{}, err
	}

	s.recorder.RecordAuthEvent("register", "success")
	s.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID.String())
	return identity, session, nil
}

// Login authenticates email and password and issues a session token. Unknown
// emails and wrong passwords fail identically.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Identity, Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, Session{}, oops.Code("AUTH_CREDENTIALS_REQUIRED").
			Public("email and password are required").
			Wrap(errutil.ErrInvalidArgument)
	}

	identity, lookupErr := s.identities.GetByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = identity.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		identity = nil
	default:
		return nil, Session{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "GetByEmail").
			Wrap(lookupErr)
	}

	// Always verify so both paths cost one hash computation.
	valid := s.hasher.Verify(password, targetHash)
	if identity == nil || !valid {
		s.recorder.RecordAuthEvent("login", "invalid_credentials")
		return nil, Session{}, errInvalidCredentials()
	}

	if s.hasher.NeedsUpgrade(identity.PasswordHash) {
		s.upgradeHash(ctx, identity, password)
	}

	session, err := s.issue(identity.ID)
	if err != nil {
		return nil, Session{}, err
	}

	s.recorder.RecordAuthEvent("login", "success")
	return identity, session, nil
}

// Me returns the identity behind an authenticated request.
func (s *AccountService) Me(ctx context.Context, identityID ulid.ULID) (*Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("IDENTITY_NOT_FOUND").
				With("identity_id", identityID.String()).
				Public("user not found").
				Wrap(err)
		}
		return nil, oops.Code("AUTH_ME_FAILED").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return identity, nil
}

// Authenticate resolves a session token to an identity ID.
func (s *AccountService) Authenticate(token string) (ulid.ULID, error) {
	return s.tokens.Verify(token)
}

// SessionTTL returns the lifetime of issued session tokens.
func (s *AccountService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AccountService) issue(identityID ulid.ULID) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(identityID)
	if err != nil {
		return Session{}, oops.Code("AUTH_SESSION_ISSUE_FAILED").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return Session{Token: token, ExpiresAt: expiresAt}, nil
}

// upgradeHash rehashes a legacy password. Login succeeds even if this fails.
func (s *AccountService) upgradeHash(ctx context.Context, identity *Identity, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"identity_id", identity.ID.String(), "error", err)
		return
	}
	if err := s.identities.UpdatePassword(ctx, identity.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade not persisted",
			"identity_id", identity.ID.String(), "error", err)
		return
	}
	identity.PasswordHash = newHash
}

func errEmailInUse() error {
	return oops.Code("AUTH_EMAIL_IN_USE").
		Public("email already in use").
		Wrap(errutil.ErrConflict)
}
