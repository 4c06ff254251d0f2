package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/artificer-dev/artificer/internal/adapter/mcp"
	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/service"
)

type mockToolReader struct {
	tools []tool.Metadata
}

func (m *mockToolReader) ListApproved(context.Context) ([]tool.Metadata, error) {
	return m.tools, nil
}

func (m *mockToolReader) Schema(_ context.Context, name string) (tool.Metadata, error) {
	for _, t := range m.tools {
		if t.Name == name {
			return t, nil
		}
	}
	return tool.Metadata{}, fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
}

type mockRunner struct {
	out     *service.Outcome
	err     error
	lastReq service.Request
}

func (m *mockRunner) Run(_ context.Context, req service.Request) (*service.Outcome, error) {
	m.lastReq = req
	return m.out, m.err
}

type mockHistory struct {
	records []run.Record
}

func (m *mockHistory) Runs(context.Context, string, int) ([]run.Record, error) {
	return m.records, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(deps mcp.ServerDeps) *mcp.Server {
	return mcp.NewServer(mcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps, discardLogger())
}

func TestNewServer(t *testing.T) {
	s := newTestServer(mcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	s := mcp.NewServer(mcp.ServerConfig{Addr: ":0", Name: "test", Version: "0.1.0"},
		mcp.ServerDeps{}, discardLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	s := newTestServer(mcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expected := map[string]bool{
		"list_tools":      false,
		"get_tool_schema": false,
		"run_tool":        false,
		"get_run_history": false,
	}
	if len(tools) != len(expected) {
		t.Fatalf("registered tools = %d, want %d", len(tools), len(expected))
	}
	for name := range tools {
		if _, ok := expected[name]; !ok {
			t.Errorf("unexpected tool: %s", name)
		}
		expected[name] = true
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func callTool(t *testing.T, s *mcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	registered, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("tool %q not found", name)
	}
	result, err := registered.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func textOf(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

func TestHandleListTools(t *testing.T) {
	s := newTestServer(mcp.ServerDeps{
		Tools: &mockToolReader{tools: []tool.Metadata{
			{Name: "ping", Description: "checks a host"},
			{Name: "weather", Description: "fetches a forecast"},
		}},
	})

	result := callTool(t, s, "list_tools", nil)
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	var metas []tool.Metadata
	if err := json.Unmarshal([]byte(textOf(t, result)), &metas); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("tools = %d, want 2", len(metas))
	}
}

func TestHandleRunTool(t *testing.T) {
	runner := &mockRunner{out: &service.Outcome{
		Status:     service.StatusSucceeded,
		Tool:       &tool.Tool{Name: "ping"},
		Source:     service.SourceDB,
		Output:     "pong",
		DurationMS: 5,
	}}
	s := newTestServer(mcp.ServerDeps{Runner: runner})

	result := callTool(t, s, "run_tool", map[string]any{
		"tool":   "ping",
		"params": map[string]any{"host": "example.com"},
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(textOf(t, result)), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["ok"] != true || body["tool"] != "ping" || body["result"] != "pong" {
		t.Errorf("body = %v", body)
	}
	if runner.lastReq.Origin != "mcp" {
		t.Errorf("origin = %q, want mcp", runner.lastReq.Origin)
	}
}

func TestHandleRunToolMissingArgs(t *testing.T) {
	s := newTestServer(mcp.ServerDeps{Runner: &mockRunner{}})

	result := callTool(t, s, "run_tool", nil)
	if !result.IsError {
		t.Fatal("expected error for missing intent and tool")
	}
}

func TestHandleRunToolPendingApproval(t *testing.T) {
	runner := &mockRunner{out: &service.Outcome{
		Status: service.StatusPendingApproval,
		Tool:   &tool.Tool{Name: "word_counter", Code: "print(1)"},
		Source: service.SourceAIGenerated,
	}}
	s := newTestServer(mcp.ServerDeps{Runner: runner})

	result := callTool(t, s, "run_tool", map[string]any{"intent": "count words", "generate": true})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	text := textOf(t, result)
	var body map[string]any
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "pending_approval" {
		t.Errorf("status = %v", body["status"])
	}
	if strings.Contains(text, "print(1)") {
		t.Error("pending response leaked tool code")
	}
}

func TestHandleGetRunHistory(t *testing.T) {
	s := newTestServer(mcp.ServerDeps{
		History: &mockHistory{records: []run.Record{
			{ToolName: "ping", Success: true, DurationMS: 4},
		}},
	})

	result := callTool(t, s, "get_run_history", map[string]any{"tool": "ping"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	var records []run.Record
	if err := json.Unmarshal([]byte(textOf(t, result)), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 1 || records[0].ToolName != "ping" {
		t.Errorf("records = %+v", records)
	}
}
