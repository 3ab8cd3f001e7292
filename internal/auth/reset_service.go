// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/mail"
	"github.com/devcollab/devcollab/pkg/errutil"
)

// ResetRequestedMessage is returned for every reset request, whether or not
// the email belongs to an identity.
const ResetRequestedMessage = "If that email exists, a reset link was sent"

// DefaultClientURL is the front-end origin used to build recovery links.
const DefaultClientURL = "http://localhost:5173"

// Transactor runs fn inside a store transaction carried by ctx. An error from
// fn rolls the transaction back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventRecorder receives authentication outcomes for metrics.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// ResetRequestResult is the public outcome of a reset request. It is
// identical for known and unknown emails.
type ResetRequestResult struct {
	Message string
}

// PasswordResetService manages the password reset lifecycle.
type PasswordResetService struct {
	identities IdentityRepository
	resets     PasswordResetRepository
	hasher     PasswordHasher
	tx         Transactor
	mailer     mail.Sender
	clientURL  string
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
	recorder   EventRecorder
}

// ResetServiceOption configures a PasswordResetService.
type ResetServiceOption func(*PasswordResetService)

// WithClientURL sets the origin used in recovery links.
func WithClientURL(url string) ResetServiceOption {
	return func(s *PasswordResetService) {
		if url != "" {
			s.clientURL = strings.TrimRight(url, "/")
		}
	}
}

// WithResetTTL overrides the reset token lifetime.
func WithResetTTL(ttl time.Duration) ResetServiceOption {
	return func(s *PasswordResetService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetClock sets the clock used for expiry.
func WithResetClock(now func() time.Time) ResetServiceOption {
	return func(s *PasswordResetService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithResetLogger sets the logger.
func WithResetLogger(logger *slog.Logger) ResetServiceOption {
	return func(s *PasswordResetService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResetRecorder sets the metrics recorder.
func WithResetRecorder(r EventRecorder) ResetServiceOption {
	return func(s *PasswordResetService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	identities IdentityRepository,
	resets PasswordResetRepository,
	hasher PasswordHasher,
	tx Transactor,
	mailer mail.Sender,
	opts ...ResetServiceOption,
) (*PasswordResetService, error) {
	switch {
	case identities == nil:
		return nil, oops.Errorf("identity repository is required")
	case resets == nil:
		return nil, oops.Errorf("reset repository is required")
	case hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case tx == nil:
		return nil, oops.Errorf("transactor is required")
	case mailer == nil:
		return nil, oops.Errorf("mailer is required")
	}

	s := &PasswordResetService{
		identities: identities,
		resets:     resets,
		hasher:     hasher,
		tx:         tx,
		mailer:     mailer,
		clientURL:  DefaultClientURL,
		ttl:        ResetTokenExpiry,
		now:        time.Now,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestReset starts recovery for the identity registered under email.
//
// A fresh token supersedes any outstanding one for the identity, and the raw
// value is sent in a recovery link. Unknown emails get the same result with
// no side effects. A delivery failure is returned as DeliveryFailed; the new
// token stays stored.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (ResetRequestResult, error) {
	result := ResetRequestResult{Message: ResetRequestedMessage}

	email = NormalizeEmail(email)
	if email == "" {
		return ResetRequestResult{}, oops.Code("RESET_EMAIL_REQUIRED").
			Public("email is required").
			Wrap(errutil.ErrInvalidArgument)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recorder.RecordAuthEvent("reset_request", "unknown_email")
			s.logger.DebugContext(ctx, "password reset requested for unregistered email")
			return result, nil
		}
		return ResetRequestResult{}, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return ResetRequestResult{}, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GenerateResetToken").
			Wrap(err)
	}

	now := s.now()
	reset, err := NewPasswordReset(identity.ID, hash, now, now.Add(s.ttl))
	if err != nil {
		return ResetRequestResult{}, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "NewPasswordReset").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return ResetRequestResult{}, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "Create").
			With("identity_id", identity.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset token issued",
		"identity_id", identity.ID.String(),
		"expires_at", reset.ExpiresAt)

	msg, err := mail.PasswordResetMessage(identity.Email, s.resetLink(token), s.ttl)
	if err != nil {
		return ResetRequestResult{}, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "PasswordResetMessage").
			Wrap(err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.recorder.RecordAuthEvent("reset_request", "delivery_failed")
		return ResetRequestResult{}, oops.Code("RESET_DELIVERY_FAILED").
			With("identity_id", identity.ID.String()).
			Public("the reset email could not be sent").
			Wrap(errors.Join(errutil.ErrDeliveryFailed, err))
	}

	s.recorder.RecordAuthEvent("reset_request", "sent")
	return result, nil
}

// ConsumeReset replaces the password of the identity that owns rawToken.
//
// The token is claimed, the password validated and stored, and every
// outstanding token for the identity deleted, all in one transaction. An
// unknown, expired or already used token is InvalidOrExpired. A rejected
// password leaves the token usable.
func (s *PasswordResetService) ConsumeReset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return errResetTokenInvalid()
	}
	hash := HashResetToken(rawToken)

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		reset, err := s.resets.ClaimByTokenHash(ctx, hash, s.now())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errResetTokenInvalid()
			}
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "ClaimByTokenHash").
				Wrap(err)
		}

		if err := ValidatePassword(newPassword); err != nil {
			return err
		}

		hashed, err := s.hasher.Hash(newPassword)
		if err != nil {
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "Hash").
				Wrap(err)
		}

		if err := s.identities.UpdatePassword(ctx, reset.IdentityID, hashed); err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("IDENTITY_NOT_FOUND").
					With("identity_id", reset.IdentityID.String()).
					Public("user not found").
					Wrap(err)
			}
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "UpdatePassword").
				With("identity_id", reset.IdentityID.String()).
				Wrap(err)
		}

		if err := s.resets.DeleteByIdentity(ctx, reset.IdentityID); err != nil {
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "DeleteByIdentity").
				With("identity_id", reset.IdentityID.String()).
				Wrap(err)
		}

		s.logger.InfoContext(ctx, "password reset completed", "identity_id", reset.IdentityID.String())
		return nil
	})
	if err != nil {
		s.recorder.RecordAuthEvent("reset_consume", errutil.KindOf(err).String())
		return err
	}

	s.recorder.RecordAuthEvent("reset_consume", "success")
	return nil
}

// SweepExpired deletes reset records that can no longer be used.
func (s *PasswordResetService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.resets.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("RESET_SWEEP_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired password resets removed", "count", n)
	}
	return n, nil
}

func (s *PasswordResetService) resetLink(token string) string {
	return s.clientURL + "/reset-password/" + token
}

func errResetTokenInvalid() error {
	return oops.Code("RESET_TOKEN_INVALID").
		Public("invalid or expired token").
		Wrap(errutil.ErrInvalidOrExpired)
}
