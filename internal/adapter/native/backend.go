// Package native executes Go tools in-process through the yaegi
// interpreter. It is the weakest isolation boundary the engine has, so the
// code is screened against an import blocklist before it is evaluated and
// only approved tools ever reach this backend.
package native

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
)

func init() {
	toolbackend.Register(tool.LanguageNative, func(opts toolbackend.Options) (toolbackend.Backend, error) {
		return New(opts), nil
	})
}

// blockedImports are packages interpreted code may not touch. Subprocesses,
// raw syscalls and unsafe memory access defeat the point of interpreting the
// code instead of compiling it.
var blockedImports = []string{
	"os/exec",
	"syscall",
	"unsafe",
	"plugin",
	"runtime/debug",
	"net",
}

// Backend interprets Go tool code in-process.
type Backend struct {
	timeout time.Duration
}

// New creates a native backend from the shared execution options.
func New(opts toolbackend.Options) *Backend {
	return &Backend{timeout: opts.Timeout}
}

// Language returns the language this backend serves.
func (b *Backend) Language() tool.Language { return tool.LanguageNative }

// Execute evaluates the tool's code and calls its Run function with the
// parameter map. The interpreter cannot be preempted, so on timeout the
// evaluation goroutine is abandoned and the caller gets ExecutionTimeout.
func (b *Backend) Execute(ctx context.Context, t *tool.Tool, params map[string]any) (toolbackend.Result, error) {
	start := time.Now()

	if err := checkImports(t.Code); err != nil {
		return toolbackend.Result{DurationMS: time.Since(start).Milliseconds()},
			fmt.Errorf("%w: %v", domain.ErrExecution, err)
	}

	type evalResult struct {
		out any
		err error
	}
	done := make(chan evalResult, 1)
	go func() {
		out, err := evaluate(t.Code, params)
		done <- evalResult{out, err}
	}()

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	select {
	case r := <-done:
		durationMS := time.Since(start).Milliseconds()
		if r.err != nil {
			return toolbackend.Result{DurationMS: durationMS},
				fmt.Errorf("%w: %v", domain.ErrExecution, r.err)
		}
		return toolbackend.Result{Output: r.out, DurationMS: durationMS}, nil
	case <-runCtx.Done():
		durationMS := time.Since(start).Milliseconds()
		if ctx.Err() != nil {
			return toolbackend.Result{DurationMS: durationMS},
				fmt.Errorf("execution cancelled: %w", context.Cause(ctx))
		}
		return toolbackend.Result{DurationMS: durationMS},
			fmt.Errorf("%w after %s", domain.ErrExecutionTimeout, b.timeout)
	}
}

func evaluate(code string, params map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if _, err := i.Eval(code); err != nil {
		return nil, fmt.Errorf("eval tool code: %w", err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("tool does not define Run: %w", err)
	}
	fn, ok := v.Interface().(func(map[string]any) (any, error))
	if !ok {
		return nil, fmt.Errorf("Run must have signature func(map[string]any) (any, error)")
	}
	if params == nil {
		params = map[string]any{}
	}
	return fn(params)
}

// checkImports parses the code and rejects blocked import paths before the
// interpreter ever sees them.
func checkImports(code string) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "tool.go", code, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse tool code: %w", err)
	}
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		for _, blocked := range blockedImports {
			if path == blocked || strings.HasPrefix(path, blocked+"/") {
				return fmt.Errorf("import %q is not allowed in native tools", path)
			}
		}
	}
	return nil
}
