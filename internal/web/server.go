// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package web exposes the account, password reset and project services as a
// JSON HTTP API.
package web

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/project"
)

// DefaultRequestTimeout bounds the context handed to services.
const DefaultRequestTimeout = 10 * time.Second

// AccountService is the account surface the API needs.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*auth.Identity, auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Identity, auth.Session, error)
	Me(ctx context.Context, identityID ulid.ULID) (*auth.Identity, error)
	Authenticate(token string) (ulid.ULID, error)
}

// ResetService is the password reset surface the API needs.
type ResetService interface {
	RequestReset(ctx context.Context, email string) (auth.ResetRequestResult, error)
	ConsumeReset(ctx context.Context, rawToken, newPassword string) error
}

// ProjectService is the project surface the API needs.
type ProjectService interface {
	Create(ctx context.Context, actor ulid.ULID, in project.CreateInput) (*project.Project, error)
	Get(ctx context.Context, actor, id ulid.ULID) (*project.Project, error)
	ListForIdentity(ctx context.Context, actor ulid.ULID) (project.Listing, error)
	Update(ctx context.Context, actor, id ulid.ULID, in project.UpdateInput) (*project.Project, error)
	Delete(ctx context.Context, actor, id ulid.ULID) error
	AddCollaborator(ctx context.Context, actor, id ulid.ULID, email, role string) (*project.Project, error)
	RemoveCollaborator(ctx context.Context, actor, id, collaboratorID ulid.ULID) (*project.Project, error)
	ChangeCollaboratorRole(ctx context.Context, actor, id, collaboratorID ulid.ULID, role string) (*project.Project, error)
}

// RequestRecorder receives finished requests for metrics.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}

// Config holds HTTP-level settings.
type Config struct {
	CookieSecure   bool
	ClientURL      string
	RequestTimeout time.Duration
}

// Server is the DevCollab HTTP API.
type Server struct {
	app      *fiber.App
	accounts AccountService
	resets   ResetService
	projects ProjectService
	cfg      Config
	logger   *slog.Logger
	recorder RequestRecorder
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the request metrics recorder.
func WithRecorder(r RequestRecorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewServer builds the API and registers its routes.
func NewServer(accounts AccountService, resets ResetService, projects ProjectService, cfg Config, opts ...Option) (*Server, error) {
	switch {
	case accounts == nil:
		return nil, oops.Errorf("account service is required")
	case resets == nil:
		return nil, oops.Errorf("reset service is required")
	case projects == nil:
		return nil, oops.Errorf("project service is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ClientURL == "" {
		cfg.ClientURL = auth.DefaultClientURL
	}

	s := &Server{
		accounts: accounts,
		resets:   resets,
		projects: projects,
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "devcollab",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		ReadTimeout:           cfg.RequestTimeout + 5*time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:           2 * time.Minute,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(s.observe)
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.ClientURL,
		AllowCredentials: true,
	}))
	s.app.Use(s.withTimeout)

	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("DevCollab API is running")
	})

	api := s.app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", s.register)
	authRoutes.Post("/login", s.login)
	authRoutes.Post("/logout", s.logout)
	authRoutes.Get("/me", s.requireIdentity, s.me)
	authRoutes.Post("/forgot-password", s.forgotPassword)
	authRoutes.Post("/reset-password/:token", s.resetPassword)

	projects := api.Group("/projects", s.requireIdentity)
	projects.Post("/", s.createProject)
	projects.Get("/", s.listProjects)
	projects.Get("/:projectId", s.getProject)
	projects.Put("/:projectId", s.updateProject)
	projects.Delete("/:projectId", s.deleteProject)
	projects.Post("/:projectId/collaborators", s.addCollaborator)
	projects.Delete("/:projectId/collaborators/:userId", s.removeCollaborator)
	projects.Put("/:projectId/collaborators/:userId", s.changeCollaboratorRole)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server started", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil {
		return oops.Code("HTTP_SERVE_FAILED").With("addr", ln.Addr().String()).Wrap(err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("http server stopped")
	return nil
}
