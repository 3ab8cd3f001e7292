// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

const internalMessage = "server error"

var kindStatus = map[errutil.Kind]int{
	errutil.KindUnauthenticated:  http.StatusUnauthorized,
	errutil.KindUnauthorized:     http.StatusForbidden,
	errutil.KindInvalidOrExpired: http.StatusBadRequest,
	errutil.KindConflict:         http.StatusConflict,
	errutil.KindNotFound:         http.StatusNotFound,
	errutil.KindInvalidArgument:  http.StatusBadRequest,
	errutil.KindDeliveryFailed:   http.StatusBadGateway,
	errutil.KindInternal:         http.StatusInternalServerError,
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusFor maps an error to its HTTP status. A classified error keeps its
// status even when a deadline caused it.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	kind := errutil.KindOf(err)
	if kind == errutil.KindInternal && errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return kindStatus[kind]
}

// handleError writes the JSON error body. Internal faults are logged and
// answered with a generic message.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	body := errorResponse{}

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		body.Error = fe.Message
		body.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
	case status == http.StatusGatewayTimeout:
		errutil.LogError(s.logger, "request timed out", err)
		body.Error = "request timed out"
		body.Code = "timeout"
	default:
		kind := errutil.KindOf(err)
		body.Code = kind.String()
		if kind == errutil.KindInternal {
			errutil.LogError(s.logger, "request failed", err)
			body.Error = internalMessage
		} else {
			body.Error = oops.GetPublic(err, http.StatusText(status))
		}
	}

	return c.Status(status).JSON(body)
}

func badRequest(code, msg string, cause error) error {
	b := oops.Code(code).Public(msg)
	if cause != nil {
		return b.Wrap(errors.Join(errutil.ErrInvalidArgument, cause))
	}
	return b.Wrap(errutil.ErrInvalidArgument)
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return badRequest("REQUEST_BODY_INVALID", "invalid request body", err)
	}
	return nil
}

// pathID parses a ULID path parameter. A malformed id cannot name an
// existing record, so it is reported as not found.
func pathID(c *fiber.Ctx, param, what string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(c.Params(param))
	if err != nil {
		return ulid.ULID{}, oops.Code(strings.ToUpper(what)+"_NOT_FOUND").
			With("param", param).
			Public(what + " not found").
			Wrap(errutil.ErrNotFound)
	}
	return id, nil
}
