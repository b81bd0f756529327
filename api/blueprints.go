package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// BlueprintInput is the editable part of a blueprint.
type BlueprintInput struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	SourceText  string                     `json:"sourceText,omitempty"`
	Values      map[string]json.RawMessage `json:"values,omitempty"`
	Categories  []catalog.Category         `json:"categories,omitempty"`
}

// GenerateBlueprintRequest is the body of POST /v1/blueprints/generate.
// Without a BlueprintID a new blueprint is created when generation succeeds;
// its ID is returned up front in the X-Inkwell-Blueprint-Id header.
type GenerateBlueprintRequest struct {
	BlueprintID string             `json:"blueprintId,omitempty"`
	Name        string             `json:"name,omitempty"`
	SourceText  string             `json:"sourceText,omitempty"`
	Categories  []catalog.Category `json:"categories,omitempty"`
}

// HeaderBlueprintID carries the ID of the blueprint a generation writes to.
const HeaderBlueprintID = "X-Inkwell-Blueprint-Id"

func (in *BlueprintInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", errBadRequest)
	}
	return catalog.ValidateCategories(in.Categories)
}

func (s *Server) handleListBlueprints(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	blueprints, err := s.driver.ListBlueprints(c.UserContext(), id.UserID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(map[string]any{
		"count":      len(blueprints),
		"blueprints": blueprints,
	})
}

func (s *Server) handleCreateBlueprint(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var in BlueprintInput
	if err := c.BodyParser(&in); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if err := in.validate(); err != nil {
		return s.writeError(c, err)
	}

	now := s.now()
	b := &catalog.Blueprint{
		ID:          catalog.NewID(),
		OwnerID:     id.UserID,
		Name:        in.Name,
		Description: in.Description,
		SourceText:  in.SourceText,
		Values:      in.Values,
		Categories:  in.Categories,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.driver.PutBlueprint(c.UserContext(), b); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionCreate, catalog.EntityBlueprint, b.ID, b.Name)
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (s *Server) handleGetBlueprint(c *fiber.Ctx) error {
	_, b, err := s.loadBlueprint(c)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(b)
}

func (s *Server) handleUpdateBlueprint(c *fiber.Ctx) error {
	id, b, err := s.loadBlueprint(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var in BlueprintInput
	if err := c.BodyParser(&in); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if err := in.validate(); err != nil {
		return s.writeError(c, err)
	}

	b.Name = in.Name
	b.Description = in.Description
	b.SourceText = in.SourceText
	b.Values = in.Values
	b.Categories = in.Categories
	b.UpdatedAt = s.now()

	if err := s.driver.PutBlueprint(c.UserContext(), b); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionUpdate, catalog.EntityBlueprint, b.ID, b.Name)
	return c.JSON(b)
}

func (s *Server) handleDeleteBlueprint(c *fiber.Ctx) error {
	id, b, err := s.loadBlueprint(c)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.driver.DeleteBlueprint(c.UserContext(), b.ID); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionDelete, catalog.EntityBlueprint, b.ID, b.Name)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleCloneBlueprint(c *fiber.Ctx) error {
	id, b, err := s.loadBlueprint(c)
	if err != nil {
		return s.writeError(c, err)
	}

	clone := b.Clone(id.UserID, s.now())
	if err := s.driver.PutBlueprint(c.UserContext(), clone); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionClone, catalog.EntityBlueprint, clone.ID, "from "+b.ID)
	return c.Status(fiber.StatusCreated).JSON(clone)
}

func (s *Server) handleGenerateBlueprint(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body GenerateBlueprintRequest
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}

	var (
		b   *catalog.Blueprint
		key string
	)
	if body.BlueprintID != "" {
		b, err = s.driver.GetBlueprint(c.UserContext(), body.BlueprintID)
		if err != nil {
			return s.writeError(c, err)
		}
		if !id.CanAccess(b.OwnerID) {
			return s.writeError(c, auth.ErrForbidden)
		}
		key = "blueprint:" + b.ID
	} else {
		now := s.now()
		b = &catalog.Blueprint{
			ID:        catalog.NewID(),
			OwnerID:   id.UserID,
			Name:      body.Name,
			CreatedAt: now,
		}
		if b.Name == "" {
			b.Name = "Untitled blueprint"
		}
		// A new blueprint has no stored entity yet, so it is serialized per
		// caller.
		key = "blueprint:new:" + id.UserID
	}

	if body.SourceText != "" {
		b.SourceText = body.SourceText
	}
	if body.Categories != nil {
		if err := catalog.ValidateCategories(body.Categories); err != nil {
			return s.writeError(c, err)
		}
		b.Categories = body.Categories
	}

	req := generator.Request{
		Kind:        generator.KindBlueprint,
		BlueprintID: b.ID,
		Name:        b.Name,
		SourceText:  b.SourceText,
		Categories:  b.Categories,
	}
	if err := req.Validate(); err != nil {
		return s.writeError(c, err)
	}

	c.Set(HeaderBlueprintID, b.ID)
	return s.stream(c, streamJob{
		key: key,
		req: req,
		persist: func(ctx context.Context, result map[string]json.RawMessage) error {
			return s.saveBlueprintResult(ctx, id, b, body, result)
		},
	})
}

// saveBlueprintResult stores generated slots on the blueprint and copies
// string slots into matching fields so projects created from it start
// pre-filled. An existing blueprint is re-read first so edits made while the
// generation ran survive.
func (s *Server) saveBlueprintResult(ctx context.Context, id auth.Identity, draft *catalog.Blueprint, body GenerateBlueprintRequest, result map[string]json.RawMessage) error {
	var values map[string]json.RawMessage
	if raw, ok := result[genstream.KeyBlueprintValues]; ok {
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("decoding blueprint values: %w", err)
		}
	}

	b := draft
	if body.BlueprintID != "" {
		stored, err := s.driver.GetBlueprint(ctx, body.BlueprintID)
		if err != nil {
			return fmt.Errorf("reloading blueprint: %w", err)
		}
		if body.SourceText != "" {
			stored.SourceText = body.SourceText
		}
		if body.Categories != nil {
			stored.Categories = body.Categories
		}
		b = stored
	}

	b.Values = values
	catalog.SetFieldValues(b.Categories, stringValues(values))
	b.UpdatedAt = s.now()

	if err := s.driver.PutBlueprint(ctx, b); err != nil {
		return err
	}

	s.record(id, catalog.ActionGenerate, catalog.EntityBlueprint, b.ID, s.generator.Name())
	return nil
}

// loadBlueprint fetches :id and checks the caller may access it.
func (s *Server) loadBlueprint(c *fiber.Ctx) (auth.Identity, *catalog.Blueprint, error) {
	id, err := identity(c)
	if err != nil {
		return id, nil, err
	}

	b, err := s.driver.GetBlueprint(c.UserContext(), c.Params("id"))
	if err != nil {
		return id, nil, err
	}
	if !id.CanAccess(b.OwnerID) {
		return id, nil, auth.ErrForbidden
	}
	return id, b, nil
}

// stringValues keeps the JSON string entries of m.
func stringValues(m map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(m))
	for k, raw := range m {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			out[k] = v
		}
	}
	return out
}
