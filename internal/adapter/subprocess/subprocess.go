// Package subprocess runs backend commands under a wall-clock deadline.
// Commands run in their own process group so that expiry kills the whole
// tree, not just the direct child.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/artificer-dev/artificer/internal/domain"
)

// Run executes name with args under timeout and returns stdout and stderr in
// separate buffers plus elapsed milliseconds. Keeping the streams apart lets
// callers parse stdout as a result while stderr stays diagnostic noise.
// extraEnv entries are appended to the host environment. The duration is
// returned on every path, errors included.
func Run(ctx context.Context, timeout time.Duration, name string, args, extraEnv []string) (stdout, stderr []byte, durationMS int64, err error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err = cmd.Run()
	durationMS = time.Since(start).Milliseconds()
	stdout, stderr = outBuf.Bytes(), errBuf.Bytes()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return stdout, stderr, durationMS, fmt.Errorf("%w after %s", domain.ErrExecutionTimeout, timeout)
		}
		if ctx.Err() != nil {
			return stdout, stderr, durationMS, fmt.Errorf("execution cancelled: %w", context.Cause(ctx))
		}
		return stdout, stderr, durationMS, fmt.Errorf("%w: %v: %s", domain.ErrExecution, err, diagnostic(stdout, stderr))
	}
	return stdout, stderr, durationMS, nil
}

// diagnostic joins both streams for error detail, preserving everything the
// process said on its way down.
func diagnostic(stdout, stderr []byte) []byte {
	// Copied so the append below cannot scribble over the returned stdout.
	combined := append([]byte(nil), bytes.TrimSpace(stdout)...)
	if trimmed := bytes.TrimSpace(stderr); len(trimmed) > 0 {
		if len(combined) > 0 {
			combined = append(combined, '\n')
		}
		combined = append(combined, trimmed...)
	}
	return combined
}
