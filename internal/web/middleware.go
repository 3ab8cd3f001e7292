// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// CookieName is the session cookie.
const CookieName = "token"

const (
	localIdentity = "identity_id"
	tracerName    = "github.com/devcollab/devcollab/internal/web"
)

// observe wraps every request in a span, resolves handler errors into
// responses and records the outcome.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(c.UserContext(), c.Method()+" "+c.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.request.method", c.Method())))
	defer span.End()
	c.SetUserContext(ctx)

	if err := c.Next(); err != nil {
		if kind := errutil.KindOf(err); kind == errutil.KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, kind.String())
		}
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(http.StatusInternalServerError)
		}
	}

	route := c.Route().Path
	status := c.Response().StatusCode()
	span.SetName(c.Method() + " " + route)
	span.SetAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
	)
	s.recorder.RecordHTTPRequest(c.Method(), route, status, time.Since(start))
	return nil
}

func (s *Server) withTimeout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()
	c.SetUserContext(ctx)
	return c.Next()
}

// requireIdentity authenticates the session cookie, falling back to an
// Authorization: Bearer header.
func (s *Server) requireIdentity(c *fiber.Ctx) error {
	token := c.Cookies(CookieName)
	if token == "" {
		if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			token = strings.TrimSpace(h[7:])
		}
	}
	if token == "" {
		return oops.Code("AUTH_REQUIRED").
			Public("not authenticated").
			Wrap(errutil.ErrUnauthenticated)
	}

	id, err := s.accounts.Authenticate(token)
	if err != nil {
		return err
	}
	c.Locals(localIdentity, id)
	return c.Next()
}

func identityFrom(c *fiber.Ctx) ulid.ULID {
	id, _ := c.Locals(localIdentity).(ulid.ULID)
	return id
}

func (s *Server) setSession(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
