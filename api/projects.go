package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// CreateProjectRequest is the body of POST /v1/projects. With a BlueprintID
// the project starts from a copy of the blueprint's category tree.
type CreateProjectRequest struct {
	Name        string             `json:"name"`
	BlueprintID string             `json:"blueprintId,omitempty"`
	Categories  []catalog.Category `json:"categories,omitempty"`
}

// UpdateProjectRequest is the body of PUT /v1/projects/:id.
type UpdateProjectRequest struct {
	Name       string                     `json:"name"`
	Categories []catalog.Category         `json:"categories,omitempty"`
	Content    map[string]json.RawMessage `json:"content,omitempty"`
}

// FieldValuesRequest sets field values by field ID.
type FieldValuesRequest struct {
	FieldValues map[string]string `json:"fieldValues"`
}

func (s *Server) handleListProjects(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	projects, err := s.driver.ListProjects(c.UserContext(), id.UserID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(projects),
		"projects": projects,
	})
}

func (s *Server) handleCreateProject(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body CreateProjectRequest
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}

	now := s.now()
	var p *catalog.Project
	if body.BlueprintID != "" {
		b, err := s.driver.GetBlueprint(c.UserContext(), body.BlueprintID)
		if err != nil {
			return s.writeError(c, err)
		}
		if !id.CanAccess(b.OwnerID) {
			return s.writeError(c, auth.ErrForbidden)
		}
		p = catalog.NewProjectFromBlueprint(b, id.UserID, body.Name, now)
	} else {
		if body.Name == "" {
			return s.writeError(c, fmt.Errorf("%w: name is required", errBadRequest))
		}
		if err := catalog.ValidateCategories(body.Categories); err != nil {
			return s.writeError(c, err)
		}
		p = &catalog.Project{
			ID:         catalog.NewID(),
			OwnerID:    id.UserID,
			Name:       body.Name,
			Categories: body.Categories,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	if err := s.driver.PutProject(c.UserContext(), p); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionCreate, catalog.EntityProject, p.ID, p.Name)
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) handleGetProject(c *fiber.Ctx) error {
	_, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(p)
}

func (s *Server) handleUpdateProject(c *fiber.Ctx) error {
	id, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body UpdateProjectRequest
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if body.Name == "" {
		return s.writeError(c, fmt.Errorf("%w: name is required", errBadRequest))
	}
	if err := catalog.ValidateCategories(body.Categories); err != nil {
		return s.writeError(c, err)
	}

	p.Name = body.Name
	p.Categories = body.Categories
	p.Content = body.Content
	p.UpdatedAt = s.now()

	if err := s.driver.PutProject(c.UserContext(), p); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionUpdate, catalog.EntityProject, p.ID, p.Name)
	return c.JSON(p)
}

func (s *Server) handleDeleteProject(c *fiber.Ctx) error {
	id, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.driver.DeleteProject(c.UserContext(), p.ID); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionDelete, catalog.EntityProject, p.ID, p.Name)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetCategories(c *fiber.Ctx) error {
	_, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}

	categories := p.Categories
	if categories == nil {
		categories = []catalog.Category{}
	}
	return c.JSON(map[string]any{
		"projectId":  p.ID,
		"categories": categories,
	})
}

func (s *Server) handleSetFieldValues(c *fiber.Ctx) error {
	id, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body FieldValuesRequest
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}

	if err := applyFieldValues(p.Categories, body.FieldValues); err != nil {
		return s.writeError(c, err)
	}
	p.UpdatedAt = s.now()

	if err := s.driver.PutProject(c.UserContext(), p); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionUpdate, catalog.EntityProject, p.ID, "field values")
	return c.JSON(p)
}

func (s *Server) handleGenerateProject(c *fiber.Ctx) error {
	id, p, err := s.loadProject(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body FieldValuesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		}
	}
	if err := applyFieldValues(p.Categories, body.FieldValues); err != nil {
		return s.writeError(c, err)
	}

	req := generator.Request{
		Kind:        generator.KindProject,
		ProjectID:   p.ID,
		BlueprintID: p.BlueprintID,
		Name:        p.Name,
		Categories:  p.Categories,
		FieldValues: body.FieldValues,
	}

	if p.BlueprintID != "" {
		b, err := s.driver.GetBlueprint(c.UserContext(), p.BlueprintID)
		switch {
		case err == nil:
			req.BlueprintValues = b.Values
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Debug("project blueprint is gone", "project_id", p.ID, "blueprint_id", p.BlueprintID)
		default:
			return s.writeError(c, err)
		}
	}

	return s.stream(c, streamJob{
		key: "project:" + p.ID,
		req: req,
		persist: func(ctx context.Context, result map[string]json.RawMessage) error {
			return s.saveProjectResult(ctx, id, p.ID, body.FieldValues, result)
		},
	})
}

// saveProjectResult re-reads the project so edits made while the generation
// ran survive, then writes the request and generated field values into its
// tree and stores the full result as the project content.
func (s *Server) saveProjectResult(ctx context.Context, id auth.Identity, projectID string, inputs map[string]string, result map[string]json.RawMessage) error {
	p, err := s.driver.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("reloading project: %w", err)
	}
	catalog.SetFieldValues(p.Categories, inputs)

	if raw, ok := result[genstream.KeyFieldValue]; ok {
		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decoding field values: %w", err)
		}
		catalog.SetFieldValues(p.Categories, fields)
	}

	p.Content = result
	p.UpdatedAt = s.now()
	if err := s.driver.PutProject(ctx, p); err != nil {
		return err
	}

	s.record(id, catalog.ActionGenerate, catalog.EntityProject, p.ID, s.generator.Name())
	return nil
}

// loadProject fetches :id and checks the caller may access it.
func (s *Server) loadProject(c *fiber.Ctx) (auth.Identity, *catalog.Project, error) {
	id, err := identity(c)
	if err != nil {
		return id, nil, err
	}

	p, err := s.driver.GetProject(c.UserContext(), c.Params("id"))
	if err != nil {
		return id, nil, err
	}
	if !id.CanAccess(p.OwnerID) {
		return id, nil, auth.ErrForbidden
	}
	return id, p, nil
}

// applyFieldValues sets values in tree and rejects IDs that match no field.
func applyFieldValues(tree []catalog.Category, values map[string]string) error {
	if unknown := catalog.SetFieldValues(tree, values); len(unknown) > 0 {
		return fmt.Errorf("%w: unknown field ids: %s", errBadRequest, strings.Join(unknown, ", "))
	}
	return nil
}
