// Package tool defines the Tool domain entity.
package tool

import (
	"fmt"
	"strings"
	"time"

	"github.com/artificer-dev/artificer/internal/domain"
)

// Language identifies the execution backend a tool runs on.
type Language string

const (
	// LanguageNative is interpreted Go executed in-process. It runs with full
	// host privileges and is the weakest isolation boundary, so it is only
	// ever reachable for approved tools.
	LanguageNative Language = "native"
	// LanguageScript is Python executed as a subprocess from a temp file.
	LanguageScript Language = "script"
	// LanguageShell is Bash executed as a subprocess with params in the environment.
	LanguageShell Language = "shell"
)

// Valid reports whether l is a member of the closed language enum.
func (l Language) Valid() bool {
	switch l {
	case LanguageNative, LanguageScript, LanguageShell:
		return true
	}
	return false
}

// Tool is a named, versionless capability definition stored in the registry.
type Tool struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Keywords      string            `json:"keywords"`
	ParamsSchema  map[string]string `json:"parameters_schema"`
	Code          string            `json:"-"`
	Language      Language          `json:"language"`
	IsApproved    bool              `json:"is_approved"`
	IsAIGenerated bool              `json:"is_ai_generated"`
	RunCount      int64             `json:"run_count"`
	LastRunAt     *time.Time        `json:"last_run_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Metadata is the public view of a tool: everything a caller may see
// before approval. It never carries the code body.
type Metadata struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Keywords     string            `json:"keywords"`
	Language     Language          `json:"language"`
	ParamsSchema map[string]string `json:"parameters_schema"`
}

// Metadata returns the public view of the tool.
func (t *Tool) Metadata() Metadata {
	return Metadata{
		Name:         t.Name,
		Description:  t.Description,
		Keywords:     t.Keywords,
		Language:     t.Language,
		ParamsSchema: t.ParamsSchema,
	}
}

// SanitizeName coerces a proposed tool name to a safe registry key:
// lowercase, with every character outside [a-z0-9_] replaced by '_'.
// The result is safe both as a unique key and as a filesystem identifier.
func SanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// CreateRequest holds the fields needed to register a curated tool.
type CreateRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Keywords     string            `json:"keywords"`
	ParamsSchema map[string]string `json:"parameters_schema"`
	Code         string            `json:"code"`
	Language     Language          `json:"language"`
}

// Validate checks the request and normalizes the name.
func (r *CreateRequest) Validate() error {
	r.Name = SanitizeName(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if r.Code == "" {
		return fmt.Errorf("%w: code is required", domain.ErrValidation)
	}
	if !r.Language.Valid() {
		return fmt.Errorf("%w: language must be one of native, script, shell", domain.ErrValidation)
	}
	return nil
}
