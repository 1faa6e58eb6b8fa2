// Package logging assembles the structured slog loggers used across vigil.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes the standard attribute keys so every component tags
// log lines with the same task, run, and event fields. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the daemon.
package logging
