// Package preflight provides readiness checks for the directories and
// binaries vigil depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before daemonizing and refuses to start
//     when a required check fails, so a misconfigured deployment surfaces
//     immediately instead of as a stream of failed ticks.
//   - The CLI "vigil status" command uses the same results to display
//     environment health.
package preflight
