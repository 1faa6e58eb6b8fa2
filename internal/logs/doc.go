// Package logs reads daemon log files for the CLI.
//
// It tails the newest lines with bounded memory and powers follow mode for
// `vigil logs --follow` by polling the log pointer, picking up the swap to a
// fresh per-run file when the daemon restarts. Callers cancel the context to
// stop following.
package logs
