// Package runner executes a single watched task: fetch the source, reduce
// the bytes to a canonical value, compare against the persisted baseline,
// and on a difference persist the new value durably before invoking the
// action command.
//
// The runner is pure sequencing logic. Fetching, transforming, and acting
// are capability interfaces so the package is fully testable with in-memory
// fakes that never touch the network or spawn processes. Side effects are
// strictly ordered persist-before-act: an action that fired is always
// backed by durable state, even if the process crashes immediately after.
package runner
