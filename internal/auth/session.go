// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// Session token configuration.
const (
	SessionTokenExpiry   = 7 * 24 * time.Hour
	MinSessionSecretSize = 32
	sessionTokenIssuer   = "devcollab"
)

// sessionClaims is the signed payload of a session token. The subject is the
// identity ID.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenTTL overrides the session lifetime.
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTokenClock sets the clock used for issuance and expiry checks.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService creates a TokenService keyed by secret. The secret is
// copied; it is never logged or returned.
func NewTokenService(secret []byte, opts ...TokenServiceOption) (*TokenService, error) {
	if len(secret) < MinSessionSecretSize {
		return nil, oops.Code("SESSION_SECRET_INVALID").
			With("min_bytes", MinSessionSecretSize).
			Errorf("session secret must be at least %d bytes", MinSessionSecretSize)
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    SessionTokenExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(sessionTokenIssuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for identityID. The returned expiry is the
// instant after which the token no longer verifies.
func (s *TokenService) Issue(identityID ulid.ULID) (string, time.Time, error) {
	if identityID.IsZero() {
		return "", time.Time{}, oops.Code("SESSION_INVALID_IDENTITY").
			Wrapf(errutil.ErrInvalidArgument, "identity ID cannot be zero")
	}

	issuedAt := s.now().Truncate(jwt.TimePrecision)
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    sessionTokenIssuer,
			Subject:   identityID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, then the expiry, and returns the identity the
// token was issued for. Every failure yields the same Unauthenticated error.
func (s *TokenService) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, errInvalidSession()
	}

	claims := &sessionClaims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ulid.ULID{}, errInvalidSession()
	}

	identityID, err := ulid.Parse(claims.Subject)
	if err != nil || identityID.IsZero() {
		return ulid.ULID{}, errInvalidSession()
	}
	return identityID, nil
}
