// Package api provides the inkwell HTTP API server: blueprint and project
// management, streaming generation endpoints, admin listings and an MCP
// endpoint.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Version is reported by /ping and the MCP server.
	Version string
}
