// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/pkg/errutil"
)

func TestGenerateResetToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateResetToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Len(t, hash, 64)
		assert.NotEqual(t, token, hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := auth.GenerateResetToken()
		require.NoError(t, err)
		token2, hash2, err := auth.GenerateResetToken()
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash is SHA256 of the raw token", func(t *testing.T) {
		token, hash, err := auth.GenerateResetToken()
		require.NoError(t, err)
		sum := sha256.Sum256([]byte(token))
		assert.Equal(t, hex.EncodeToString(sum[:]), hash)
		assert.Equal(t, hash, auth.HashResetToken(token))
	})
}

func TestVerifyResetToken(t *testing.T) {
	token, hash, err := auth.GenerateResetToken()
	require.NoError(t, err)

	assert.True(t, auth.VerifyResetToken(token, hash))
	assert.False(t, auth.VerifyResetToken("wrongtoken", hash))
	assert.False(t, auth.VerifyResetToken("", hash))
	assert.False(t, auth.VerifyResetToken(token, ""))

	swapped := []byte(token)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	if string(swapped) != token {
		assert.False(t, auth.VerifyResetToken(string(swapped), hash))
	}
}

func TestNewPasswordReset(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		identityID := ulid.Make()
		r, err := auth.NewPasswordReset(identityID, "hash", now, now.Add(auth.ResetTokenExpiry))
		require.NoError(t, err)
		assert.Equal(t, identityID, r.IdentityID)
		assert.False(t, r.ID.IsZero())
	})

	t.Run("zero identity", func(t *testing.T) {
		_, err := auth.NewPasswordReset(ulid.ULID{}, "hash", now, now.Add(time.Minute))
		errutil.AssertErrorCode(t, err, "RESET_INVALID_IDENTITY")
	})

	t.Run("empty hash", func(t *testing.T) {
		_, err := auth.NewPasswordReset(ulid.Make(), "", now, now.Add(time.Minute))
		errutil.AssertErrorCode(t, err, "RESET_INVALID_HASH")
	})

	t.Run("expiry not after creation", func(t *testing.T) {
		_, err := auth.NewPasswordReset(ulid.Make(), "hash", now, now)
		errutil.AssertErrorCode(t, err, "RESET_INVALID_EXPIRY")
	})
}

func TestPasswordReset_IsExpiredAt(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC)
	r := &auth.PasswordReset{ExpiresAt: expires}

	assert.False(t, r.IsExpiredAt(expires.Add(-time.Nanosecond)))
	assert.True(t, r.IsExpiredAt(expires))
	assert.True(t, r.IsExpiredAt(expires.Add(time.Second)))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		code     string
	}{
		{"empty", "", "PASSWORD_EMPTY"},
		{"too short", "12345", "PASSWORD_TOO_SHORT"},
		{"too long", string(make([]byte, auth.MaxPasswordLength+1)), "PASSWORD_TOO_LONG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)
			errutil.AssertErrorCode(t, err, tt.code)
			errutil.AssertKind(t, err, errutil.KindInvalidArgument)
		})
	}

	t.Run("minimum length accepted", func(t *testing.T) {
		assert.NoError(t, auth.ValidatePassword("123456"))
	})

	t.Run("password never echoed", func(t *testing.T) {
		err := auth.ValidatePassword("abc")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "abc")
	})
}
