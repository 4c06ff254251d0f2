// Package script executes Python tools as subprocesses. Each invocation
// writes the tool body to a fresh temp file behind a parameter-injection
// preamble, runs it under the shared timeout, and removes the file
// unconditionally.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artificer-dev/artificer/internal/adapter/subprocess"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
)

func init() {
	toolbackend.Register(tool.LanguageScript, func(opts toolbackend.Options) (toolbackend.Backend, error) {
		return New(opts), nil
	})
}

// Backend runs script tools with a Python interpreter.
type Backend struct {
	python  string
	timeout time.Duration
}

// New creates a script backend from the shared execution options.
func New(opts toolbackend.Options) *Backend {
	return &Backend{python: opts.Python, timeout: opts.Timeout}
}

// Language returns the language this backend serves.
func (b *Backend) Language() tool.Language { return tool.LanguageScript }

// Execute writes the tool to a temp file and runs it. Only stdout is parsed
// for the result: if it is JSON it becomes structured output, anything else
// is returned as raw text. Stderr chatter never reaches the parser; on
// failure both streams travel inside the error.
func (b *Backend) Execute(ctx context.Context, t *tool.Tool, params map[string]any) (toolbackend.Result, error) {
	source, err := injectParams(t.Code, params)
	if err != nil {
		return toolbackend.Result{}, fmt.Errorf("inject params: %w", err)
	}

	path := os.TempDir() + "/artificer-" + uuid.NewString() + ".py"
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return toolbackend.Result{}, fmt.Errorf("write temp script: %w", err)
	}
	defer os.Remove(path)

	stdout, _, durationMS, err := subprocess.Run(ctx, b.timeout, b.python, []string{path}, nil)
	res := toolbackend.Result{DurationMS: durationMS}
	if err != nil {
		return res, err
	}
	res.Output = parseOutput(stdout)
	return res, nil
}

// injectParams prepends a preamble that rebuilds the parameter map as a
// `params` dict. The JSON is embedded as a single-quoted Python literal;
// json.Marshal escapes control characters, so only backslashes and quotes
// need escaping.
func injectParams(code string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(string(data))

	var sb strings.Builder
	sb.WriteString("import json\n")
	sb.WriteString("params = json.loads('")
	sb.WriteString(escaped)
	sb.WriteString("')\n")
	sb.WriteString(code)
	sb.WriteString("\n")
	return sb.String(), nil
}

func parseOutput(out []byte) any {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(trimmed)
}
