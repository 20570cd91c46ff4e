package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docrag-mcp/internal/retriever"
)

const (
	// ServerName is the MCP server name
	ServerName = "docrag-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	retriever *retriever.Retriever
}

// NewServer creates a new MCP server around a configured retriever
func NewServer(cfg retriever.Config) (*Server, error) {
	r, err := retriever.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		retriever: r,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.retriever.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ensureIndexTool(), s.handleEnsureIndex)
	s.mcp.AddTool(retrieveTool(), s.handleRetrieve)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
