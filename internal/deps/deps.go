// Package deps reports the availability of external binaries vigil
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vigil/internal/config"
)

// Requirement defines an external dependency vigil relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required returns the external binaries the configured task set needs.
// Transform and action commands run through the shell, so the shell is
// the one hard requirement.
func Required(cfg *config.Config) []Requirement {
	shell := "sh"
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Exec.Shell); trimmed != "" {
			shell = trimmed
		}
	}
	return []Requirement{
		{
			Name:        "Shell",
			Command:     shell,
			Description: "Runs transform and action commands",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
