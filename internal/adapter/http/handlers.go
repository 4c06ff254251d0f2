// Package http exposes the engine over HTTP: the legacy single-endpoint
// contract at the root, plus an operator surface under /api/v1.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	otelx "github.com/artificer-dev/artificer/internal/adapter/otel"
	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/service"
)

// Engine drives one request through resolve, generate and execute.
type Engine interface {
	Run(ctx context.Context, req service.Request) (*service.Outcome, error)
}

// Registry is the operator-facing slice of the registry service.
type Registry interface {
	ListApproved(ctx context.Context) ([]tool.Metadata, error)
	Schema(ctx context.Context, name string) (tool.Metadata, error)
	CreateCurated(ctx context.Context, req tool.CreateRequest) (*tool.Tool, error)
	Approve(ctx context.Context, name string) error
	Runs(ctx context.Context, name string, limit int) ([]run.Record, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP dependencies.
type Handlers struct {
	engine    Engine
	registry  Registry
	db        Pinger
	logger    *slog.Logger
	bodyLimit int64
}

// NewHandlers creates the handler set. db may be nil, in which case health
// only reports process liveness.
func NewHandlers(engine Engine, registry Registry, db Pinger, logger *slog.Logger, bodyLimit int64) *Handlers {
	return &Handlers{engine: engine, registry: registry, db: db, logger: logger, bodyLimit: bodyLimit}
}

// runRequest is the engine's POST body.
type runRequest struct {
	Intent   string         `json:"intent,omitempty"`
	Tool     string         `json:"tool,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Generate bool           `json:"generate,omitempty"`
}

// runResponse is the engine's success shape.
type runResponse struct {
	OK         bool           `json:"ok"`
	Tool       string         `json:"tool"`
	Source     service.Source `json:"source"`
	Result     any            `json:"result"`
	DurationMS int64          `json:"duration_ms"`
}

// pendingResponse reports a generated-but-unapproved tool. Metadata only,
// never the code.
type pendingResponse struct {
	OK      bool          `json:"ok"`
	Status  string        `json:"status"`
	Tool    tool.Metadata `json:"tool"`
	Message string        `json:"message"`
}

// handleEngineGet serves the query surface: ?action=tools and
// ?action=schema&name=X.
func (h *Handlers) handleEngineGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "tools":
		h.listTools(w, r)
	case "schema":
		h.toolSchema(w, r, r.URL.Query().Get("name"))
	default:
		writeError(w, http.StatusBadRequest, "unknown_action", "action must be tools or schema")
	}
}

func (h *Handlers) listTools(w http.ResponseWriter, r *http.Request) {
	metas, err := h.registry.ListApproved(r.Context())
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if metas == nil {
		metas = []tool.Metadata{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": metas})
}

func (h *Handlers) toolSchema(w http.ResponseWriter, r *http.Request, name string) {
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}
	meta, err := h.registry.Schema(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "no tool named "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool": map[string]any{
		"name":        meta.Name,
		"description": meta.Description,
		"parameters":  meta.ParamsSchema,
	}})
}

// handleEngineRun serves the POST contract: resolve (or generate) and run.
func (h *Handlers) handleEngineRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[runRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Intent) == "" && req.Tool == "" {
		writeError(w, http.StatusBadRequest, "missing_intent", "one of intent or tool is required")
		return
	}

	ctx, span := otelx.StartRunSpan(r.Context(), req.Intent, req.Tool, req.Generate)
	defer span.End()

	out, err := h.engine.Run(ctx, service.Request{
		Intent:   req.Intent,
		ToolName: req.Tool,
		Params:   req.Params,
		Generate: req.Generate,
		Origin:   clientIP(r),
	})
	if err != nil {
		h.writeRunError(w, req, out, err)
		return
	}
	otelx.RecordOutcome(span, string(out.Status), out.Tool.Name, out.DurationMS)

	if out.Status == service.StatusPendingApproval {
		writeJSON(w, http.StatusAccepted, pendingResponse{
			Status:  "pending_approval",
			Tool:    out.Tool.Metadata(),
			Message: "tool was generated and is awaiting approval",
		})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		OK:         true,
		Tool:       out.Tool.Name,
		Source:     out.Source,
		Result:     out.Output,
		DurationMS: out.DurationMS,
	})
}

// writeRunError maps orchestrator failures to the engine's error codes. The
// not-found code depends on which request field drove resolution: an
// explicit name miss is tool_not_found, an intent miss is no_matching_tool.
func (h *Handlers) writeRunError(w http.ResponseWriter, req runRequest, out *service.Outcome, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing_intent", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		if req.Tool != "" {
			writeError(w, http.StatusNotFound, "tool_not_found", "no tool named "+req.Tool)
		} else {
			writeError(w, http.StatusNotFound, "no_matching_tool", "no tool matches the intent")
		}
	case errors.Is(err, domain.ErrGenerationInvalid), errors.Is(err, domain.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, "generation_failed", err.Error())
	case errors.Is(err, domain.ErrUnsupportedLanguage):
		writeError(w, http.StatusInternalServerError, "unsupported_language", err.Error())
	case errors.Is(err, domain.ErrExecutionTimeout), errors.Is(err, domain.ErrExecution):
		var durationMS int64
		if out != nil {
			durationMS = out.DurationMS
		}
		writeExecutionError(w, err.Error(), durationMS)
	default:
		h.logger.Error("engine request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// handleCreateTool registers a curated tool.
func (h *Handlers) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tool.CreateRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	created, err := h.registry.CreateCurated(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tool": created.Metadata()})
}

// handleApproveTool flips the approval gate for a tool.
func (h *Handlers) handleApproveTool(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := h.registry.Approve(r.Context(), name); err != nil {
		writeDomainError(w, err, "no tool named "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tool": name, "approved": true})
}

// handleToolRuns returns a tool's recent audit records.
func (h *Handlers) handleToolRuns(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.registry.Runs(r.Context(), name, limit)
	if err != nil {
		writeDomainError(w, err, "no tool named "+name)
		return
	}
	if records == nil {
		records = []run.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool": name, "runs": records})
}

// handleHealth reports process and storage liveness.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}
