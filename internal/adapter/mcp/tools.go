package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/artificer-dev/artificer/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listToolsTool(),
		s.getToolSchemaTool(),
		s.runToolTool(),
		s.getRunHistoryTool(),
	)
}

func (s *Server) listToolsTool() mcpserver.ServerTool {
	t := mcplib.NewTool("list_tools",
		mcplib.WithDescription("List every approved tool in the registry with its schema"),
	)
	return mcpserver.ServerTool{Tool: t, Handler: s.handleListTools}
}

func (s *Server) getToolSchemaTool() mcpserver.ServerTool {
	t := mcplib.NewTool("get_tool_schema",
		mcplib.WithDescription("Get the parameter schema of an approved tool by name"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("The tool name to look up"),
		),
	)
	return mcpserver.ServerTool{Tool: t, Handler: s.handleGetToolSchema}
}

func (s *Server) runToolTool() mcpserver.ServerTool {
	t := mcplib.NewTool("run_tool",
		mcplib.WithDescription("Resolve an intent or explicit tool name and execute the matching registry tool"),
		mcplib.WithString("intent",
			mcplib.Description("Free-text description of what to accomplish"),
		),
		mcplib.WithString("tool",
			mcplib.Description("Explicit tool name; takes precedence over intent"),
		),
		mcplib.WithObject("params",
			mcplib.Description("Parameters passed to the tool"),
		),
		mcplib.WithBoolean("generate",
			mcplib.Description("Allow generating a new tool when no existing tool matches the intent"),
		),
	)
	return mcpserver.ServerTool{Tool: t, Handler: s.handleRunTool}
}

func (s *Server) getRunHistoryTool() mcpserver.ServerTool {
	t := mcplib.NewTool("get_run_history",
		mcplib.WithDescription("Get the recent audit records of a tool"),
		mcplib.WithString("tool",
			mcplib.Required(),
			mcplib.Description("The tool name"),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of records to return"),
		),
	)
	return mcpserver.ServerTool{Tool: t, Handler: s.handleGetRunHistory}
}

func (s *Server) handleListTools(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tools == nil {
		return mcplib.NewToolResultError("tool reader not configured"), nil
	}
	metas, err := s.deps.Tools.ListApproved(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list tools", err), nil
	}
	data, err := json.Marshal(metas)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal tools", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetToolSchema(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tools == nil {
		return mcplib.NewToolResultError("tool reader not configured"), nil
	}
	name, _ := req.GetArguments()["name"].(string)
	if name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	meta, err := s.deps.Tools.Schema(ctx, name)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get schema for %s", name), err), nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal schema", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func (s *Server) handleRunTool(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runner == nil {
		return mcplib.NewToolResultError("runner not configured"), nil
	}
	args := req.GetArguments()
	intent, _ := args["intent"].(string)
	toolName, _ := args["tool"].(string)
	if intent == "" && toolName == "" {
		return mcplib.NewToolResultError("one of intent or tool is required"), nil
	}
	params, _ := args["params"].(map[string]any)
	generate, _ := args["generate"].(bool)

	out, err := s.deps.Runner.Run(ctx, service.Request{
		Intent:   intent,
		ToolName: toolName,
		Params:   params,
		Generate: generate,
		Origin:   "mcp",
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("run failed", err), nil
	}

	if out.Status == service.StatusPendingApproval {
		data, _ := json.Marshal(map[string]any{
			"status": "pending_approval",
			"tool":   out.Tool.Metadata(),
		})
		return mcplib.NewToolResultText(string(data)), nil
	}

	data, err := json.Marshal(map[string]any{
		"ok":          true,
		"tool":        out.Tool.Name,
		"source":      out.Source,
		"result":      out.Output,
		"duration_ms": out.DurationMS,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetRunHistory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.History == nil {
		return mcplib.NewToolResultError("history reader not configured"), nil
	}
	args := req.GetArguments()
	toolName, _ := args["tool"].(string)
	if toolName == "" {
		return mcplib.NewToolResultError("tool is required"), nil
	}
	limit := 0
	if n, ok := args["limit"].(float64); ok {
		limit = int(n)
	}
	records, err := s.deps.History.Runs(ctx, toolName, limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get history for %s", toolName), err), nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal history", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
