// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return badRequest("AUTH_FIELDS_REQUIRED", "name, email, and password are required", nil)
	}

	identity, session, err := s.accounts.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	s.setSession(c, session.Token, session.ExpiresAt)
	return c.Status(http.StatusCreated).JSON(dataResponse{Data: newIdentityView(identity)})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	identity, session, err := s.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	s.setSession(c, session.Token, session.ExpiresAt)
	return c.JSON(dataResponse{Data: newIdentityView(identity)})
}

// logout clears the cookie. Tokens are stateless, so a copied token stays
// valid until it expires.
func (s *Server) logout(c *fiber.Ctx) error {
	s.clearSession(c)
	return c.JSON(messageResponse{Message: "Logged out"})
}

func (s *Server) me(c *fiber.Ctx) error {
	identity, err := s.accounts.Me(c.UserContext(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Data: newIdentityView(identity)})
}

func (s *Server) forgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.resets.RequestReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: result.Message})
}

func (s *Server) resetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := s.resets.ConsumeReset(c.UserContext(), c.Params("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Password reset successful"})
}
