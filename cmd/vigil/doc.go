// Package main hosts the vigil CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into the
// daemon runtime, one-shot task checks, status and history views, state
// store maintenance, log tailing, and configuration scaffolding. It
// centralizes configuration resolution and flag overrides so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
