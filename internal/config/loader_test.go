package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artificer-dev/artificer/internal/config"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artificer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Executor.Timeout != 30*time.Second {
		t.Errorf("executor timeout = %s, want 30s", cfg.Executor.Timeout)
	}
	if cfg.Generator.AutoApprove {
		t.Error("auto approve should default to false")
	}
	if cfg.MCP.Enabled {
		t.Error("mcp should default to disabled")
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
executor:
  timeout: 45s
generator:
  auto_approve: true
`)

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Executor.Timeout != 45*time.Second {
		t.Errorf("executor timeout = %s, want 45s", cfg.Executor.Timeout)
	}
	if !cfg.Generator.AutoApprove {
		t.Error("auto approve should be enabled via yaml")
	}
	// Untouched fields keep their defaults.
	if cfg.Cache.MaxSizeMB != 16 {
		t.Errorf("cache size = %d, want default 16", cfg.Cache.MaxSizeMB)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
`)
	t.Setenv("ARTIFICER_PORT", "7070")
	t.Setenv("ARTIFICER_EXEC_TIMEOUT", "10s")
	t.Setenv("ARTIFICER_GEN_AUTO_APPROVE", "true")
	t.Setenv("ARTIFICER_API_KEY_HASHES", "hash-a, hash-b")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env value 7070", cfg.Server.Port)
	}
	if cfg.Executor.Timeout != 10*time.Second {
		t.Errorf("executor timeout = %s, want 10s", cfg.Executor.Timeout)
	}
	if !cfg.Generator.AutoApprove {
		t.Error("auto approve should be enabled via env")
	}
	if len(cfg.Auth.APIKeyHashes) != 2 || cfg.Auth.APIKeyHashes[1] != "hash-b" {
		t.Errorf("api key hashes = %v", cfg.Auth.APIKeyHashes)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeYAML(t, "server: [not a map")
	if _, err := config.LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty dsn", "postgres:\n  dsn: \"\"\n", "postgres.dsn"},
		{"zero timeout", "executor:\n  timeout: 0s\n", "executor.timeout"},
		{"zero burst", "rate:\n  burst: 0\n", "rate.burst"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeYAML(t, tc.yaml)
			_, err := config.LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
