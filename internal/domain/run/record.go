// Package run defines the append-only audit record for tool executions.
package run

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// PreviewLimit bounds the stored parameter and output previews so the audit
// log cannot grow with payload size.
const PreviewLimit = 500

// Record is one audit row per execution attempt. Records are created exactly
// once, immediately after the backend returns, and are never updated.
type Record struct {
	ID            string    `json:"id"`
	ToolID        string    `json:"tool_id"`
	ToolName      string    `json:"tool_name"`
	ParamsHash    string    `json:"params_hash"`
	ParamsPreview string    `json:"params_preview"`
	OutputPreview string    `json:"output_preview"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Origin        string    `json:"origin"`
	CreatedAt     time.Time `json:"created_at"`
}

// New builds a record from an execution attempt. ToolName is denormalized so
// history survives tool renames and deletion.
func New(toolID, toolName string, params map[string]any, output any, execErr error, durationMS int64, origin string) Record {
	paramsJSON := marshalOrEmpty(params)
	rec := Record{
		ToolID:        toolID,
		ToolName:      toolName,
		ParamsHash:    hash(paramsJSON),
		ParamsPreview: Truncate(string(paramsJSON), PreviewLimit),
		OutputPreview: Truncate(string(marshalOrEmpty(output)), PreviewLimit),
		Success:       execErr == nil,
		DurationMS:    durationMS,
		Origin:        origin,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	return rec
}

// Truncate bounds s to max bytes, marking the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func marshalOrEmpty(v any) []byte {
	if v == nil {
		return []byte("null")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return data
}

func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
