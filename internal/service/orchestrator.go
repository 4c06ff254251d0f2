package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
)

// Source tells the caller where the executed tool came from.
type Source string

const (
	// SourceDB marks a tool that already existed in the registry.
	SourceDB Source = "db"
	// SourceAIGenerated marks a tool created for this very request.
	SourceAIGenerated Source = "ai_generated"
)

// Status is the terminal state of a request.
type Status string

const (
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusPendingApproval Status = "pending_approval"
)

// Request is one engine invocation. Exactly one of ToolName and Intent
// drives resolution; ToolName wins when both are set.
type Request struct {
	Intent   string
	ToolName string
	Params   map[string]any
	Generate bool
	Origin   string
}

// Outcome is what a request terminated with. On execution failure it is
// returned alongside the error so the duration is never swallowed.
type Outcome struct {
	Status     Status
	Tool       *tool.Tool
	Source     Source
	Output     any
	DurationMS int64
}

// Metrics receives one observation per terminal state. Implementations must
// be cheap; the orchestrator calls them inline.
type Metrics interface {
	ObserveRun(ctx context.Context, toolName string, success bool, durationMS int64)
	ObserveGeneration(ctx context.Context, success bool)
}

// Orchestrator drives a request through resolve, optional generate, and
// execute. Every execution attempt lands in the audit trail regardless of
// outcome.
type Orchestrator struct {
	resolver  *Resolver
	generator *Generator
	registry  *RegistryService
	backends  map[tool.Language]toolbackend.Backend
	metrics   Metrics
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. generator and metrics may be nil;
// a nil generator rejects generation requests instead of resolving them.
func NewOrchestrator(resolver *Resolver, generator *Generator, registry *RegistryService,
	backends map[tool.Language]toolbackend.Backend, metrics Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		generator: generator,
		registry:  registry,
		backends:  backends,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run resolves the request to a tool and executes it.
//
// An explicit tool-name miss is terminal: generation only ever follows an
// intent miss, so a typo in a name cannot mint a new tool. A generated tool
// that is not auto-approved terminates as PendingApproval and is not
// executed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	if req.ToolName != "" {
		t, err := o.resolver.ResolveName(ctx, req.ToolName)
		if err != nil {
			return nil, err
		}
		return o.execute(ctx, t, SourceDB, req)
	}

	if strings.TrimSpace(req.Intent) == "" {
		return nil, fmt.Errorf("%w: intent or tool is required", domain.ErrValidation)
	}

	t, err := o.resolver.ResolveIntent(ctx, req.Intent)
	if err == nil {
		return o.execute(ctx, t, SourceDB, req)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !req.Generate {
		return nil, err
	}
	if o.generator == nil {
		return nil, fmt.Errorf("%w: generation is not configured", domain.ErrGenerationFailed)
	}

	gen, genErr := o.generator.Generate(ctx, req.Intent, req.Params)
	if o.metrics != nil {
		o.metrics.ObserveGeneration(ctx, genErr == nil)
	}
	if genErr != nil {
		return nil, genErr
	}

	if !gen.IsApproved {
		return &Outcome{Status: StatusPendingApproval, Tool: gen, Source: SourceAIGenerated}, nil
	}

	// Re-fetch so execution sees the canonical stored record.
	stored, err := o.registry.FindByName(ctx, gen.Name, true)
	if err != nil {
		return nil, fmt.Errorf("%w: refetch generated tool: %v", domain.ErrGenerationFailed, err)
	}
	return o.execute(ctx, stored, SourceAIGenerated, req)
}

func (o *Orchestrator) execute(ctx context.Context, t *tool.Tool, source Source, req Request) (*Outcome, error) {
	backend, ok := o.backends[t.Language]
	if !ok {
		// Configuration error, caught before any spawn and before any audit.
		return nil, fmt.Errorf("no backend for language %q: %w", t.Language, domain.ErrUnsupportedLanguage)
	}

	o.logger.Info("executing tool", "tool", t.Name, "language", t.Language, "source", source)
	res, execErr := backend.Execute(ctx, t, req.Params)

	rec := run.New(t.ID, t.Name, req.Params, res.Output, execErr, res.DurationMS, req.Origin)
	if recErr := o.registry.RecordRun(ctx, &rec); recErr != nil {
		o.logger.Error("audit write failed", "tool", t.Name, "error", recErr)
		// The outcome still carries what actually happened so callers keep
		// the real duration alongside the joined errors.
		return &Outcome{
			Status:     StatusFailed,
			Tool:       t,
			Source:     source,
			Output:     res.Output,
			DurationMS: res.DurationMS,
		}, errors.Join(execErr, fmt.Errorf("record run: %w", recErr))
	}
	if o.metrics != nil {
		o.metrics.ObserveRun(ctx, t.Name, execErr == nil, res.DurationMS)
	}

	if execErr != nil {
		o.logger.Warn("tool failed", "tool", t.Name, "duration_ms", res.DurationMS, "error", execErr)
		return &Outcome{
			Status:     StatusFailed,
			Tool:       t,
			Source:     source,
			DurationMS: res.DurationMS,
		}, execErr
	}

	return &Outcome{
		Status:     StatusSucceeded,
		Tool:       t,
		Source:     source,
		Output:     res.Output,
		DurationMS: res.DurationMS,
	}, nil
}
