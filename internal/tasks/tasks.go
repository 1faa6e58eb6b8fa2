// Package tasks defines the immutable task descriptors the scheduler runs.
//
// Descriptors are built once from configuration at startup and never mutated
// afterwards; the scheduler owns the list for the process lifetime.
package tasks

import (
	"time"

	"vigil/internal/config"
)

// Descriptor describes one watched resource, fully resolved: the per-task
// cadence fallback to the global default has already been applied.
type Descriptor struct {
	// ID identifies the task in logs, state, and history. It is the source
	// URL verbatim.
	ID string
	// URL is the resource address handed to the fetcher.
	URL string
	// Transform is the shell command that reduces the fetched bytes to the
	// canonical value.
	Transform string
	// Action is the shell command fired when the canonical value changes.
	Action string
	// Interval is the effective cadence for this task.
	Interval time.Duration
}

// FromConfig resolves the configured task list into descriptors. The input
// order is preserved.
func FromConfig(cfg *config.Config) []Descriptor {
	if cfg == nil {
		return nil
	}
	descriptors := make([]Descriptor, 0, len(cfg.Tasks))
	for _, task := range cfg.Tasks {
		seconds := task.CheckEvery
		if seconds <= 0 {
			seconds = cfg.CheckEvery
		}
		descriptors = append(descriptors, Descriptor{
			ID:        task.URL,
			URL:       task.URL,
			Transform: task.Transform,
			Action:    task.Action,
			Interval:  time.Duration(seconds) * time.Second,
		})
	}
	return descriptors
}
