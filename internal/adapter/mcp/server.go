// Package mcp exposes the engine to machine callers over the Model Context
// Protocol, so agent frameworks can list, run and inspect registry tools
// without going through the HTTP contract.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/service"
)

// ToolReader lists approved tools and their schemas.
type ToolReader interface {
	ListApproved(ctx context.Context) ([]tool.Metadata, error)
	Schema(ctx context.Context, name string) (tool.Metadata, error)
}

// Runner drives one engine request.
type Runner interface {
	Run(ctx context.Context, req service.Request) (*service.Outcome, error)
}

// HistoryReader returns a tool's recent audit records.
type HistoryReader interface {
	Runs(ctx context.Context, name string, limit int) ([]run.Record, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps carries the engine surfaces the MCP tools call into. Nil
// fields disable the corresponding tools with a structured error.
type ServerDeps struct {
	Tools   ToolReader
	Runner  Runner
	History HistoryReader
}

// Server wraps an mcp-go server with the engine's tool set.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
	logger    *slog.Logger
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(true, false),
		),
		logger: logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over streamable HTTP in a background goroutine.
func (s *Server) Start() error {
	handler := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.cfg.APIKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the MCP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
