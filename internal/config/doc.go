// Package config loads, validates, and normalizes vigil's TOML
// configuration.
//
// A configuration names the watched tasks (source URL, transformation
// command, action command, optional cadence) plus the daemon's state,
// history, logging, and notification settings. Load resolves the config
// path, fills defaults, expands ~ in paths, and validates the result so the
// rest of the daemon can treat the returned Config as trusted input.
package config
