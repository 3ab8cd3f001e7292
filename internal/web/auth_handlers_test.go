// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/web"
	"github.com/devcollab/devcollab/pkg/errutil"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	r := f.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ada", "email": "Ada@Example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusCreated, r.status)
	assert.Equal(t, "ada@example.com", r.data()["email"])
	assert.NotContains(t, r.data(), "passwordHash")
	assert.NotContains(t, r.data(), "password")

	cookie := sessionCookie(t, r)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	t.Run("duplicate email", func(t *testing.T) {
		r := f.do(t, http.MethodPost, "/api/auth/register",
			map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret123"}, "")
		assert.Equal(t, http.StatusConflict, r.status)
		assert.Equal(t, "email already in use", r.body["error"])
		assert.Equal(t, "conflict", r.body["code"])
	})

	t.Run("missing fields", func(t *testing.T) {
		r := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "x@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, r.status)
		assert.Equal(t, "name, email, and password are required", r.body["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := f.server.App().Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com")

	r := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Ada", r.data()["name"])
	assert.NotEmpty(t, sessionCookie(t, r).Value)

	wrong := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "nope-nope"}, "")
	unknown := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ghost@example.com", "password": "secret123"}, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.status)
	assert.Equal(t, wrong.status, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)
	assert.Equal(t, "invalid credentials", wrong.body["error"])
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	id, token := f.signUp(t, "Ada", "ada@example.com")

	t.Run("cookie", func(t *testing.T) {
		r := f.do(t, http.MethodGet, "/api/auth/me", nil, token)
		require.Equal(t, http.StatusOK, r.status)
		assert.Equal(t, id, r.data()["id"])
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := f.server.App().Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		r := f.do(t, http.MethodGet, "/api/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, r.status)
		assert.Equal(t, "not authenticated", r.body["error"])
		assert.Equal(t, "unauthenticated", r.body["code"])
	})

	t.Run("tampered token", func(t *testing.T) {
		r := f.do(t, http.MethodGet, "/api/auth/me", nil, token+"x")
		assert.Equal(t, http.StatusUnauthorized, r.status)
		assert.Equal(t, "invalid or expired session", r.body["error"])
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	r := f.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Logged out", r.body["message"])

	cookie := sessionCookie(t, r)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0 || cookie.Expires.Unix() <= 0)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com")

	known := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ada@example.com"}, "")
	unknown := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, "")
	require.Equal(t, http.StatusOK, known.status)
	assert.Equal(t, known.status, unknown.status)
	assert.Equal(t, known.body, unknown.body)
	assert.Equal(t, auth.ResetRequestedMessage, known.body["message"])

	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	m := resetLinkRe.FindStringSubmatch(sent[0].HTMLBody)
	require.Len(t, m, 2)
	token := m[1]

	short := f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "abc"}, "")
	assert.Equal(t, http.StatusBadRequest, short.status)
	assert.Equal(t, "invalid_argument", short.body["code"])

	ok := f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "brand-new-pw"}, "")
	require.Equal(t, http.StatusOK, ok.status)
	assert.Equal(t, "Password reset successful", ok.body["message"])

	reused := f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "another-pw"}, "")
	assert.Equal(t, http.StatusBadRequest, reused.status)
	assert.Equal(t, "invalid or expired token", reused.body["error"])
	assert.Equal(t, "invalid_or_expired", reused.body["code"])

	login := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "brand-new-pw"}, "")
	assert.Equal(t, http.StatusOK, login.status)

	assert.NotContains(t, f.logs.String(), token)
}

func TestForgotPassword_Validation(t *testing.T) {
	f := newFixture(t)
	r := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "email is required", r.body["error"])
}

func TestForgotPassword_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com")
	f.outbox.Err = errors.New("relay refused")

	r := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusBadGateway, r.status)
	assert.Equal(t, "delivery_failed", r.body["code"])
	assert.NotContains(t, r.body["error"], "relay refused")
}

func TestForgotPassword_DeliveryTimeout(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com")
	f.outbox.Err = context.DeadlineExceeded

	r := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusBadGateway, r.status)
	assert.Equal(t, "delivery_failed", r.body["code"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"wrapped deadline", oops.Code("PROJECT_GET_FAILED").Wrap(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"delivery failed by deadline", errors.Join(errutil.ErrDeliveryFailed, context.DeadlineExceeded), http.StatusBadGateway},
		{"not found", oops.Code("PROJECT_NOT_FOUND").Wrap(errutil.ErrNotFound), http.StatusNotFound},
		{"fiber error", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, web.StatusFor(tt.err))
		})
	}
}
