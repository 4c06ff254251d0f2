// Package shell executes shell tools as subprocesses with parameters passed
// through prefixed environment variables.
package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/artificer-dev/artificer/internal/adapter/subprocess"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
)

// EnvPrefix guards tool parameters against collisions with the host
// environment.
const EnvPrefix = "ARTIFICER_PARAM_"

func init() {
	toolbackend.Register(tool.LanguageShell, func(opts toolbackend.Options) (toolbackend.Backend, error) {
		return New(opts), nil
	})
}

// Backend runs shell tools under the configured shell.
type Backend struct {
	shell   string
	timeout time.Duration
}

// New creates a shell backend from the shared execution options.
func New(opts toolbackend.Options) *Backend {
	return &Backend{shell: opts.Shell, timeout: opts.Timeout}
}

// Language returns the language this backend serves.
func (b *Backend) Language() tool.Language { return tool.LanguageShell }

// Execute runs the tool body via `shell -c`. The result is trimmed stdout;
// a non-zero exit status is a hard error carrying both streams as
// diagnostic detail.
func (b *Backend) Execute(ctx context.Context, t *tool.Tool, params map[string]any) (toolbackend.Result, error) {
	stdout, _, durationMS, err := subprocess.Run(ctx, b.timeout, b.shell, []string{"-c", t.Code}, ParamEnv(params))
	res := toolbackend.Result{DurationMS: durationMS}
	if err != nil {
		return res, err
	}
	res.Output = strings.TrimSpace(string(stdout))
	return res, nil
}

// ParamEnv converts a parameter map into environment entries. Keys are
// uppercased with non-alphanumerics replaced by '_' and prefixed; the result
// is sorted so invocations are reproducible.
func ParamEnv(params map[string]any) []string {
	env := make([]string, 0, len(params))
	for k, v := range params {
		env = append(env, EnvPrefix+envKey(k)+"="+envValue(v))
	}
	sort.Strings(env)
	return env
}

func envKey(k string) string {
	k = strings.ToUpper(k)
	var sb strings.Builder
	sb.Grow(len(k))
	for _, r := range k {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func envValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}
