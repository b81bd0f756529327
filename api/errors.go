package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks caller mistakes that have no more specific sentinel.
var errBadRequest = errors.New("bad request")

// errSessionActive is returned when a generation for the same entity is
// already streaming for the caller.
var errSessionActive = errors.New("a generation session is already active for this entity")

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrConflict), errors.Is(err, errSessionActive):
		return fiber.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrInvalidTree),
		errors.Is(err, generator.ErrInvalidRequest):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// writeError sends err as an ErrorResponse. Internal errors are logged and
// replaced with a generic message.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		msg = "internal error"
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
