package api

import (
	"fmt"
	"net/mail"

	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// CreateUserRequest is the body of POST /v1/admin/users.
type CreateUserRequest struct {
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  auth.Role `json:"role,omitempty"`
}

func (s *Server) handleAdminListUsers(c *fiber.Ctx) error {
	users, err := s.driver.ListUsers(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}

	redacted := make([]catalog.User, len(users))
	for i, u := range users {
		redacted[i] = u.Redacted()
	}

	return c.JSON(map[string]any{
		"count": len(redacted),
		"users": redacted,
	})
}

// handleAdminCreateUser creates an account. The token is only ever returned
// by this response.
func (s *Server) handleAdminCreateUser(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var body CreateUserRequest
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		return s.writeError(c, fmt.Errorf("%w: invalid email %q", errBadRequest, body.Email))
	}
	if body.Role == "" {
		body.Role = auth.RoleUser
	}
	if !body.Role.Valid() {
		return s.writeError(c, fmt.Errorf("%w: invalid role %q", errBadRequest, body.Role))
	}

	u := &catalog.User{
		ID:        catalog.NewID(),
		Email:     body.Email,
		Name:      body.Name,
		Role:      body.Role,
		Token:     catalog.NewToken(),
		CreatedAt: s.now(),
	}
	if err := s.driver.CreateUser(c.UserContext(), u); err != nil {
		return s.writeError(c, err)
	}

	s.record(id, catalog.ActionCreate, catalog.EntityUser, u.ID, u.Email)
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (s *Server) handleAdminListProjects(c *fiber.Ctx) error {
	projects, err := s.driver.ListProjects(c.UserContext(), c.Query("owner"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(map[string]any{
		"count":    len(projects),
		"projects": projects,
	})
}

func (s *Server) handleAdminListBlueprints(c *fiber.Ctx) error {
	blueprints, err := s.driver.ListBlueprints(c.UserContext(), c.Query("owner"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(map[string]any{
		"count":      len(blueprints),
		"blueprints": blueprints,
	})
}

// handleAdminListActivity returns the activity log newest first.
// Query parameters:
//   - user (optional): restrict to one user ID
//   - limit (optional, default 100): maximum entries
func (s *Server) handleAdminListActivity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", storage.DefaultActivityLimit)
	if limit <= 0 {
		return s.writeError(c, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
	}

	logs, err := s.driver.ListActivity(c.UserContext(), storage.ActivityQuery{
		UserID: c.Query("user"),
		Limit:  limit,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(logs),
		"activity": logs,
	})
}
