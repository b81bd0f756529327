package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/auth"
)

// authenticate resolves the bearer token to a user and attaches the identity
// to the request's user context.
func (s *Server) authenticate(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing bearer token"})
	}

	u, err := s.driver.GetUserByToken(c.UserContext(), token)
	if err != nil {
		s.logger.Debug("rejected token", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid token"})
	}

	c.SetUserContext(auth.WithIdentity(c.UserContext(), u.Identity()))
	return c.Next()
}

// requireAdmin rejects non-admin identities.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	if _, err := auth.RequireRole(c.UserContext(), auth.RoleAdmin); err != nil {
		return s.writeError(c, err)
	}
	return c.Next()
}

// identity returns the caller attached by authenticate.
func identity(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := auth.FromContext(c.UserContext())
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return id, nil
}
