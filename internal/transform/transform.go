// Package transform pipes fetched bytes through a task's shell command
// and canonicalizes the output into the comparable value.
package transform

import (
	"context"
	"strings"
	"time"

	"vigil/internal/config"
	"vigil/internal/shell"
)

// Shell runs transformation commands through the configured interpreter.
type Shell struct {
	shell   string
	timeout time.Duration
}

// New builds a shell-backed transformer from the exec section of the
// configuration.
func New(cfg *config.Config) *Shell {
	s := &Shell{shell: "sh"}
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Exec.Shell); trimmed != "" {
			s.shell = trimmed
		}
		if cfg.Exec.TransformTimeout > 0 {
			s.timeout = time.Duration(cfg.Exec.TransformTimeout) * time.Second
		}
	}
	return s
}

// Transform feeds raw to the command's stdin and returns the canonical
// form of whatever the command printed.
func (s *Shell) Transform(ctx context.Context, raw []byte, spec string) (string, error) {
	out, err := shell.Run(ctx, shell.Command{
		Shell:   s.shell,
		Script:  spec,
		Stdin:   raw,
		Timeout: s.timeout,
	})
	if err != nil {
		return "", err
	}
	return Canonical(out.Stdout), nil
}

// Canonical converts transformer stdout into the value used for change
// comparison: invalid UTF-8 sequences become replacement runes and
// surrounding whitespace is trimmed.
func Canonical(stdout []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(stdout), "�"))
}
