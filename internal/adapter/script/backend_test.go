package script_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/artificer-dev/artificer/internal/adapter/script"
	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
)

func requirePython(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	return path
}

func newBackend(t *testing.T, timeout time.Duration) *script.Backend {
	t.Helper()
	return script.New(toolbackend.Options{Timeout: timeout, Python: requirePython(t)})
}

func TestExecuteJSONOutput(t *testing.T) {
	b := newBackend(t, 10*time.Second)
	res, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "adder",
		Language: tool.LanguageScript,
		Code:     `print(json.dumps({"sum": params["a"] + params["b"]}))`,
	}, map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, ok := res.Output.(map[string]any)
	if !ok {
		t.Fatalf("output type = %T, want map", res.Output)
	}
	if out["sum"] != float64(5) {
		t.Errorf("sum = %v, want 5", out["sum"])
	}
}

func TestExecuteRawTextFallback(t *testing.T) {
	b := newBackend(t, 10*time.Second)
	res, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "greeter",
		Language: tool.LanguageScript,
		Code:     `print("hello " + params["who"])`,
	}, map[string]any{"who": "world"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "hello world" {
		t.Errorf("output = %q, want raw text fallback", res.Output)
	}
}

func TestExecuteQuoteSafeParams(t *testing.T) {
	b := newBackend(t, 10*time.Second)
	res, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "echo",
		Language: tool.LanguageScript,
		Code:     `print(params["text"])`,
	}, map[string]any{"text": `it's a "quoted" \path\`})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != `it's a "quoted" \path\` {
		t.Errorf("output = %q, quoting not preserved", res.Output)
	}
}

func TestExecuteStderrNoiseKeepsJSON(t *testing.T) {
	b := newBackend(t, 10*time.Second)
	res, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "noisy_adder",
		Language: tool.LanguageScript,
		Code: `import sys
print("DeprecationWarning: something", file=sys.stderr)
print(json.dumps({"sum": 5}))`,
	}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, ok := res.Output.(map[string]any)
	if !ok {
		t.Fatalf("output type = %T, want map despite stderr chatter", res.Output)
	}
	if out["sum"] != float64(5) {
		t.Errorf("sum = %v, want 5", out["sum"])
	}
}

func TestExecuteFailureKeepsDuration(t *testing.T) {
	b := newBackend(t, 10*time.Second)
	res, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "broken",
		Language: tool.LanguageScript,
		Code:     `raise RuntimeError("boom")`,
	}, nil)
	if !errors.Is(err, domain.ErrExecution) {
		t.Fatalf("err = %v, want ErrExecution", err)
	}
	if res.DurationMS < 0 {
		t.Errorf("duration = %d, want non-negative on failure", res.DurationMS)
	}
}

func TestExecuteTimeoutKillsProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("timeout test sleeps")
	}
	b := newBackend(t, 500*time.Millisecond)
	sentinel := filepath.Join(t.TempDir(), "sentinel")

	start := time.Now()
	_, err := b.Execute(context.Background(), &tool.Tool{
		Name:     "sleeper",
		Language: tool.LanguageScript,
		Code:     "import time\ntime.sleep(3)\nopen(params[\"sentinel\"], \"w\").close()",
	}, map[string]any{"sentinel": sentinel})
	if !errors.Is(err, domain.ErrExecutionTimeout) {
		t.Fatalf("err = %v, want ErrExecutionTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("returned after %s, want within timeout plus epsilon", elapsed)
	}

	time.Sleep(3 * time.Second)
	if _, err := os.Stat(sentinel); err == nil {
		t.Error("sentinel file exists, child survived the kill")
	}
}
