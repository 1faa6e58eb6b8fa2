package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"vigil/internal/config"
	"vigil/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run for features that are enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", filepath.Dir(cfg.State.Path)))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Daemon.LogDir))
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.History.Path)))
	}

	for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = fmt.Sprintf("%s (found)", status.Command)
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}

	return results
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Err collapses failed checks into one error, nil when everything passed.
func Err(results []Result) error {
	var failures []error
	for _, result := range results {
		if result.Passed {
			continue
		}
		detail := strings.TrimSpace(result.Detail)
		if detail == "" {
			detail = "check failed"
		}
		failures = append(failures, fmt.Errorf("%s: %s", result.Name, detail))
	}
	return errors.Join(failures...)
}
