package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/louisbranch/boardrules/internal/ontology/runtime"
	"github.com/louisbranch/boardrules/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "boardrules"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Config wires the server's dependencies.
type Config struct {
	// Store enables workspace tools. Nil leaves them unregistered.
	Store  storage.WorkspaceStore
	Logger *log.Logger
	// Engine is applied to every per-call engine.
	Engine runtime.Options
}

// Server is an MCP server over the rules engine.
type Server struct {
	mcpServer *mcp.Server
	store     storage.WorkspaceStore
	logger    *log.Logger
	engine    runtime.Options
}

// New creates a server and registers its tools.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	engine := cfg.Engine
	if engine.Logger == nil {
		engine.Logger = logger
	}
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		store:     cfg.Store,
		logger:    logger,
		engine:    engine,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, ValidateTool(), s.validateHandler)
	mcp.AddTool(s.mcpServer, MovesTool(), s.movesHandler)
	if s.store == nil {
		return
	}
	mcp.AddTool(s.mcpServer, SaveWorkspaceTool(), s.saveWorkspaceHandler)
	mcp.AddTool(s.mcpServer, ListWorkspacesTool(), s.listWorkspacesHandler)
	mcp.AddTool(s.mcpServer, DeleteWorkspaceTool(), s.deleteWorkspaceHandler)
}

// Serve starts the MCP server on stdio and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
