package transform_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/transform"
)

func newShell(t *testing.T) *transform.Shell {
	t.Helper()
	cfg := config.Default()
	return transform.New(&cfg)
}

func TestTransformPipesStdin(t *testing.T) {
	s := newShell(t)
	value, err := s.Transform(context.Background(), []byte("hello world"), "tr a-z A-Z")
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if value != "HELLO WORLD" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestTransformTrimsOutput(t *testing.T) {
	s := newShell(t)
	value, err := s.Transform(context.Background(), nil, "printf '  spaced\\n\\n'")
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if value != "spaced" {
		t.Fatalf("expected trimmed value, got %q", value)
	}
}

func TestTransformFailureSurfacesStderr(t *testing.T) {
	s := newShell(t)
	_, err := s.Transform(context.Background(), nil, "echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("expected exit status in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected stderr excerpt in error, got %v", err)
	}
}

func TestTransformTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Exec.TransformTimeout = 1
	s := transform.New(&cfg)

	start := time.Now()
	_, err := s.Transform(context.Background(), nil, "sleep 30")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestCanonicalReplacesInvalidUTF8(t *testing.T) {
	value := transform.Canonical([]byte{' ', 'o', 'k', 0xff, '\n'})
	if value != "ok�" {
		t.Fatalf("unexpected canonical value %q", value)
	}
}

func TestCanonicalEmptyOutput(t *testing.T) {
	if got := transform.Canonical([]byte("  \n\t ")); got != "" {
		t.Fatalf("expected empty canonical value, got %q", got)
	}
}
