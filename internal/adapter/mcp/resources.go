package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"artificer://tools",
			"Tool Registry",
			mcplib.WithResourceDescription("All approved tools with their parameter schemas"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleToolsResource,
	)
}

func (s *Server) handleToolsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Tools == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"tool reader not configured"}`,
			},
		}, nil
	}
	metas, err := s.deps.Tools.ListApproved(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(metas)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
