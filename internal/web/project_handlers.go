// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/devcollab/devcollab/internal/project"
)

func (s *Server) createProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Name == "" {
		return badRequest("PROJECT_NAME_REQUIRED", "project name is required", nil)
	}

	p, err := s.projects.Create(c.UserContext(), identityFrom(c), project.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		IsPrivate:     req.IsPrivate,
		Tags:          req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dataResponse{Data: newProjectView(p)})
}

func (s *Server) listProjects(c *fiber.Ctx) error {
	listing, err := s.projects.ListForIdentity(c.UserContext(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Data: listingView{
		Owned:        newProjectViews(listing.Owned),
		Collaborated: newProjectViews(listing.Collaborated),
	}})
}

func (s *Server) getProject(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	p, err := s.projects.Get(c.UserContext(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Data: newProjectView(p)})
}

func (s *Server) updateProject(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	var req updateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	p, err := s.projects.Update(c.UserContext(), identityFrom(c), id, project.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		IsPrivate:     req.IsPrivate,
		Tags:          req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Data: newProjectView(p)})
}

func (s *Server) deleteProject(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	if err := s.projects.Delete(c.UserContext(), identityFrom(c), id); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Project deleted successfully"})
}

func (s *Server) addCollaborator(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	var req addCollaboratorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	p, err := s.projects.AddCollaborator(c.UserContext(), identityFrom(c), id, req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Message: "Collaborator added successfully", Data: newProjectView(p)})
}

func (s *Server) removeCollaborator(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId", "collaborator")
	if err != nil {
		return err
	}

	p, err := s.projects.RemoveCollaborator(c.UserContext(), identityFrom(c), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Message: "Collaborator removed successfully", Data: newProjectView(p)})
}

func (s *Server) changeCollaboratorRole(c *fiber.Ctx) error {
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId", "collaborator")
	if err != nil {
		return err
	}
	var req changeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	p, err := s.projects.ChangeCollaboratorRole(c.UserContext(), identityFrom(c), id, userID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(dataResponse{Message: "Collaborator role updated successfully", Data: newProjectView(p)})
}
