// Package action fires a task's reaction command after a change is
// persisted, handing the new value over through the environment.
package action

import (
	"context"
	"strings"
	"time"

	"vigil/internal/config"
	"vigil/internal/shell"
)

// Environment variables visible to action commands.
const (
	// EnvValue carries the freshly persisted canonical value.
	EnvValue = "VIGIL_VALUE"
	// EnvTaskID carries the task identifier, i.e. its URL.
	EnvTaskID = "VIGIL_TASK_ID"
)

// Shell runs action commands through the configured interpreter.
type Shell struct {
	shell   string
	timeout time.Duration
}

// New builds a shell-backed action invoker from the exec section of the
// configuration.
func New(cfg *config.Config) *Shell {
	s := &Shell{shell: "sh"}
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Exec.Shell); trimmed != "" {
			s.shell = trimmed
		}
		if cfg.Exec.ActionTimeout > 0 {
			s.timeout = time.Duration(cfg.Exec.ActionTimeout) * time.Second
		}
	}
	return s
}

// Invoke runs spec with the task identity and new value exported in the
// environment. The command's stdout is discarded; a non-zero exit is an
// error.
func (s *Shell) Invoke(ctx context.Context, spec, taskID, value string) error {
	_, err := shell.Run(ctx, shell.Command{
		Shell:  s.shell,
		Script: spec,
		Env: []string{
			EnvValue + "=" + value,
			EnvTaskID + "=" + taskID,
		},
		Timeout: s.timeout,
	})
	return err
}
