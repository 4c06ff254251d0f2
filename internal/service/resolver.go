// Package service holds the engine's core logic: intent resolution, tool
// generation, and the per-request orchestration state machine.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// Scoring constants. These are part of the observable matching contract:
// changing them changes which tool a given intent resolves to.
const (
	scoreVerbatim  = 10
	scorePrefix    = 3
	scoreThreshold = 10
	minTokenLen    = 3
	prefixLen      = 4
)

// ToolSource supplies approved tools for resolution. Candidates must be
// returned in stable insertion order; the tie-break below depends on it.
type ToolSource interface {
	FindByName(ctx context.Context, name string, approvedOnly bool) (*tool.Tool, error)
	Candidates(ctx context.Context) ([]tool.Tool, error)
}

// Resolver turns an intent string or an explicit tool name into at most one
// approved tool. It is a cheap lexical heuristic, deliberately not semantic
// search.
type Resolver struct {
	source ToolSource
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(source ToolSource, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// ResolveName looks up an explicitly named tool. A miss never triggers
// generation; that path is reserved for intent misses.
func (r *Resolver) ResolveName(ctx context.Context, name string) (*tool.Tool, error) {
	return r.source.FindByName(ctx, name, true)
}

// ResolveIntent matches free text against the approved registry.
//
// Exact name equality wins outright. Otherwise every tool is scored per
// intent token of length >= minTokenLen: +10 when the token appears verbatim
// in the tool's haystack (keywords, name, description, lowercased), plus +3
// when the token's first four characters appear. Both can fire for the same
// token. The best tool is returned only when its score reaches the
// threshold; ties go to the first-encountered candidate.
func (r *Resolver) ResolveIntent(ctx context.Context, intent string) (*tool.Tool, error) {
	normalized := strings.ToLower(strings.TrimSpace(intent))
	if normalized == "" {
		return nil, fmt.Errorf("empty intent: %w", domain.ErrNotFound)
	}

	candidates, err := r.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	for i := range candidates {
		if normalized == strings.ToLower(candidates[i].Name) {
			return &candidates[i], nil
		}
	}

	tokens := strings.Fields(normalized)

	var best *tool.Tool
	bestScore := 0
	for i := range candidates {
		score := scoreTool(&candidates[i], tokens)
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < scoreThreshold {
		r.logger.Debug("intent unresolved", "intent", intent, "best_score", bestScore)
		return nil, fmt.Errorf("no tool matches intent: %w", domain.ErrNotFound)
	}

	r.logger.Debug("intent resolved", "intent", intent, "tool", best.Name, "score", bestScore)
	return best, nil
}

func scoreTool(t *tool.Tool, tokens []string) int {
	haystack := strings.ToLower(t.Keywords + " " + t.Name + " " + t.Description)
	score := 0
	for _, token := range tokens {
		if len(token) < minTokenLen {
			continue
		}
		if strings.Contains(haystack, token) {
			score += scoreVerbatim
		}
		prefix := token
		if len(prefix) > prefixLen {
			prefix = prefix[:prefixLen]
		}
		if strings.Contains(haystack, prefix) {
			score += scorePrefix
		}
	}
	return score
}
