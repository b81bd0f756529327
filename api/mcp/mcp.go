// Package mcp provides an MCP (Model Context Protocol) server exposing
// inkwell blueprints and project category trees to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

type Config struct {
	// Users resolves bearer tokens to identities.
	Users storage.UserStore

	// Blueprints backs the list_blueprints and get_category_tree tools.
	Blueprints storage.BlueprintStore

	// Projects backs the get_category_tree tool.
	Projects storage.ProjectStore

	// Version is reported in the MCP implementation info.
	Version string

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   http.Handler
}

// NewServer creates a new MCP server with the inkwell tools.
func NewServer(c Config) (*Server, error) {
	if c.Users == nil {
		return nil, errors.New("user store is required")
	}
	if c.Blueprints == nil {
		return nil, errors.New("blueprint store is required")
	}
	if c.Projects == nil {
		return nil, errors.New("project store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{config: c}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "inkwell",
			Version: c.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        listBlueprintsToolName,
		Description: listBlueprintsDescription,
	}, s.handleListBlueprints)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        categoryTreeToolName,
		Description: categoryTreeDescription,
	}, s.handleCategoryTree)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)
	s.handler = s.authenticate(streamable)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server. Requests must carry
// an inkwell bearer token.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// authenticate resolves the bearer token and attaches the identity to the
// request context the tools run with.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		u, err := s.config.Users.GetUserByToken(r.Context(), token)
		if err != nil {
			s.config.Logger.Debug("MCP token rejected", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), u.Identity())))
	})
}

// toolError builds an error result shown to the model.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// toolJSON builds a result carrying v as JSON text.
func toolJSON(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return toolError("Failed to serialize results: %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

// callerIdentity returns the identity attached by authenticate.
func callerIdentity(ctx context.Context) (auth.Identity, *mcp.CallToolResult) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, toolError("unauthenticated")
	}
	return id, nil
}
