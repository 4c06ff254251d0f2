// Package database defines the registry store port (interface).
package database

import (
	"context"

	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// Store is the port interface for the tool registry and its audit trail.
// The store exclusively owns both entities; every other component works on
// copies and communicates mutations back through these write operations.
type Store interface {
	// FindByName returns the tool with the given name. When approvedOnly is
	// true (every execution path), unapproved tools are invisible.
	FindByName(ctx context.Context, name string, approvedOnly bool) (*tool.Tool, error)

	// FindCandidates returns all approved tools in insertion order
	// (created_at ASC, id ASC). The ordering is load-bearing: the intent
	// resolver breaks score ties by first-encountered position.
	FindCandidates(ctx context.Context) ([]tool.Tool, error)

	// Insert stores a new tool atomically. A name collision returns
	// domain.ErrDuplicateName without touching the existing row.
	Insert(ctx context.Context, t *tool.Tool) error

	// Approve flips the approval gate for the named tool.
	Approve(ctx context.Context, name string) error

	// RecordRun appends an audit record and bumps the tool's usage counters
	// in a single transaction.
	RecordRun(ctx context.Context, rec *run.Record) error

	// ListRunsByTool returns the most recent audit records for a tool name.
	ListRunsByTool(ctx context.Context, toolName string, limit int) ([]run.Record, error)
}
