// Package toolbackend defines the per-language execution backend port.
package toolbackend

import (
	"context"
	"time"

	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// Result holds the outcome of one backend invocation. DurationMS is set on
// failure too; callers need it to diagnose slow-then-failing tools.
type Result struct {
	Output     any   `json:"output"`
	DurationMS int64 `json:"duration_ms"`
}

// Options carries the shared execution policy every backend honors.
type Options struct {
	// Timeout is the maximum wall-clock time per invocation. Backends must
	// return within it and terminate anything they spawned, children included.
	Timeout time.Duration
	// Python is the interpreter binary for the script backend.
	Python string
	// Shell is the shell binary for the shell backend.
	Shell string
}

// Backend is the port interface for executing a tool's code.
// Implementations enforce Options.Timeout themselves so the contract holds
// even when the caller passes an unbounded context.
type Backend interface {
	// Language returns the enum member this backend serves.
	Language() tool.Language

	// Execute runs the tool with the given parameter map. On failure the
	// returned Result still carries the elapsed duration.
	Execute(ctx context.Context, t *tool.Tool, params map[string]any) (Result, error)
}
