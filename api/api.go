package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	apimcp "github.com/inkwellhq/inkwell/api/mcp"
	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// Recorder accepts activity log entries. *activity.Pool implements it.
type Recorder interface {
	Record(userID, action, entityType, entityID, detail string) bool
}

// Server is the inkwell API server.
type Server struct {
	config    Config
	driver    storage.Driver
	generator generator.Generator
	recorder  Recorder
	sessions  *sessionGuard
	logger    *slog.Logger
	app       *fiber.App
	now       func() time.Time
}

// NewServer creates a new API server. The driver, generator and recorder are
// injected so they can be shared with other components and faked in tests.
func NewServer(config Config, driver storage.Driver, gen generator.Generator, recorder Recorder, log *slog.Logger) (*Server, error) {
	if driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if recorder == nil {
		return nil, errors.New("activity recorder is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
		},
	})

	s := &Server{
		config:    config,
		driver:    driver,
		generator: gen,
		recorder:  recorder,
		sessions:  newSessionGuard(),
		logger:    log,
		app:       app,
		now:       func() time.Time { return time.Now().UTC() },
	}

	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Users:      driver,
		Blueprints: driver,
		Projects:   driver,
		Version:    config.Version,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app.Get("/ping", s.handlePing)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	v1 := app.Group("/v1", s.authenticate)

	v1.Get("/blueprints", s.handleListBlueprints)
	v1.Post("/blueprints", s.handleCreateBlueprint)
	v1.Post("/blueprints/generate", s.handleGenerateBlueprint)
	v1.Get("/blueprints/:id", s.handleGetBlueprint)
	v1.Put("/blueprints/:id", s.handleUpdateBlueprint)
	v1.Delete("/blueprints/:id", s.handleDeleteBlueprint)
	v1.Post("/blueprints/:id/clone", s.handleCloneBlueprint)

	v1.Get("/projects", s.handleListProjects)
	v1.Post("/projects", s.handleCreateProject)
	v1.Get("/projects/:id", s.handleGetProject)
	v1.Put("/projects/:id", s.handleUpdateProject)
	v1.Delete("/projects/:id", s.handleDeleteProject)
	v1.Get("/projects/:id/categories", s.handleGetCategories)
	v1.Put("/projects/:id/categories", s.handleSetFieldValues)
	v1.Post("/projects/:id/generate", s.handleGenerateProject)

	v1.Get("/me", s.handleMe)

	admin := v1.Group("/admin", s.requireAdmin)
	admin.Get("/users", s.handleAdminListUsers)
	admin.Post("/users", s.handleAdminCreateUser)
	admin.Get("/projects", s.handleAdminListProjects)
	admin.Get("/blueprints", s.handleAdminListBlueprints)
	admin.Get("/activity", s.handleAdminListActivity)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting API server", "listen", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Bootstrap creates an admin account with email when the store has no users
// yet. It returns the created user, or nil when users already exist.
func Bootstrap(ctx context.Context, users storage.UserStore, email string) (*catalog.User, error) {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	admin := &catalog.User{
		ID:        catalog.NewID(),
		Email:     email,
		Name:      "Administrator",
		Role:      auth.RoleAdmin,
		Token:     catalog.NewToken(),
		CreatedAt: time.Now().UTC(),
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return nil, fmt.Errorf("creating admin: %w", err)
	}
	return admin, nil
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleMe returns the authenticated caller.
func (s *Server) handleMe(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return s.writeError(c, err)
	}
	u, err := s.driver.GetUser(c.UserContext(), id.UserID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(u.Redacted())
}

// record enqueues an activity entry for the caller.
func (s *Server) record(id auth.Identity, action, entityType, entityID, detail string) {
	if !s.recorder.Record(id.UserID, action, entityType, entityID, detail) {
		s.logger.Warn("activity entry dropped", "action", action, "entity_id", entityID)
	}
}
