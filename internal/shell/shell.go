// Package shell spawns host-installed one-liners through the configured
// shell, the way the transformation and action specs expect to be invoked.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// stderrCap bounds how much child stderr is retained for error reporting.
const stderrCap = 8 << 10

// Command describes one shell invocation.
type Command struct {
	// Shell is the interpreter binary, e.g. "sh". The script is passed via -c.
	Shell string
	// Script is the user-supplied one-liner.
	Script string
	// Stdin is written to the child's standard input when non-nil.
	Stdin []byte
	// Env entries are appended to the parent environment.
	Env []string
	// Timeout bounds the child's runtime when positive.
	Timeout time.Duration
}

// Output captures what the child produced.
type Output struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Run executes the command and waits for completion. A non-zero exit, a
// timeout, or a spawn failure all return a non-nil error; Output carries
// whatever stdout/stderr was captured either way.
func Run(ctx context.Context, command Command) (Output, error) {
	out := Output{ExitCode: -1}

	shellBin := strings.TrimSpace(command.Shell)
	if shellBin == "" {
		shellBin = "sh"
	}
	if strings.TrimSpace(command.Script) == "" {
		return out, errors.New("empty command script")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if command.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, shellBin, "-c", command.Script) //nolint:gosec
	if command.Stdin != nil {
		cmd.Stdin = bytes.NewReader(command.Stdin)
	}
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}

	var stdout bytes.Buffer
	stderr := &cappedBuffer{limit: stderrCap}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	out.Stdout = stdout.Bytes()
	out.Stderr = strings.TrimSpace(stderr.String())
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		out.ExitCode = 0
		return out, nil
	}

	if command.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return out, fmt.Errorf("command timed out after %s", command.Timeout)
	}
	if ctx.Err() != nil {
		return out, fmt.Errorf("command canceled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if out.Stderr != "" {
			return out, fmt.Errorf("exit status %d: %s", out.ExitCode, out.Stderr)
		}
		return out, fmt.Errorf("exit status %d", out.ExitCode)
	}
	return out, fmt.Errorf("run command: %w", err)
}

// cappedBuffer keeps the first limit bytes and drops the rest so a noisy
// child cannot grow the error context without bound.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
