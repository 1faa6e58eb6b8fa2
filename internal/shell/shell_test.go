package shell_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"vigil/internal/shell"
)

func TestRunCapturesStdout(t *testing.T) {
	out, err := shell.Run(context.Background(), shell.Command{
		Shell:  "sh",
		Script: "printf 'hello world'",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out.Stdout) != "hello world" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
	if out.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", out.ExitCode)
	}
}

func TestRunPipesStdin(t *testing.T) {
	out, err := shell.Run(context.Background(), shell.Command{
		Shell:  "sh",
		Script: "tr a-z A-Z",
		Stdin:  []byte("canonical"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out.Stdout) != "CANONICAL" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
}

func TestRunExposesEnv(t *testing.T) {
	out, err := shell.Run(context.Background(), shell.Command{
		Shell:  "sh",
		Script: `printf '%s' "$PROBE_VALUE"`,
		Env:    []string{"PROBE_VALUE=42"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out.Stdout) != "42" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	out, err := shell.Run(context.Background(), shell.Command{
		Shell:  "sh",
		Script: "echo oops >&2; exit 3",
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if out.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", out.ExitCode)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if out.Stderr != "oops" {
		t.Fatalf("unexpected stderr %q", out.Stderr)
	}
}

func TestRunTimesOut(t *testing.T) {
	start := time.Now()
	_, err := shell.Run(context.Background(), shell.Command{
		Shell:   "sh",
		Script:  "sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout wording, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout did not bound runtime, took %s", elapsed)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := shell.Run(ctx, shell.Command{Shell: "sh", Script: "sleep 5"})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunRejectsEmptyScript(t *testing.T) {
	if _, err := shell.Run(context.Background(), shell.Command{Shell: "sh", Script: "  "}); err == nil {
		t.Fatal("expected error for empty script")
	}
}
