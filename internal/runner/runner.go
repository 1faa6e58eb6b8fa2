package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/logging"
	"vigil/internal/tasks"
)

// Fetcher retrieves the raw bytes behind a task's source address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// Transformer reduces raw content to the canonical comparison value.
type Transformer interface {
	Transform(ctx context.Context, raw []byte, spec string) (string, error)
}

// ActionInvoker fires the task's side effect with the new canonical value.
type ActionInvoker interface {
	Invoke(ctx context.Context, spec, taskID, value string) error
}

// Store is the slice of the state store the runner needs.
type Store interface {
	Get(taskID string) (string, bool)
	Set(taskID, value string) error
}

// Outcome classifies one task execution.
type Outcome string

const (
	OutcomeUnchanged       Outcome = "unchanged"
	OutcomeChanged         Outcome = "changed"
	OutcomeFetchFailed     Outcome = "fetch_failed"
	OutcomeTransformFailed Outcome = "transform_failed"
	OutcomePersistFailed   Outcome = "persist_failed"
)

// Failed reports whether the outcome represents an execution failure.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFetchFailed, OutcomeTransformFailed, OutcomePersistFailed:
		return true
	}
	return false
}

// Result is what one execution produced.
type Result struct {
	TaskID  string
	Outcome Outcome
	// Value is the canonical value for Changed and Unchanged outcomes.
	Value string
	// Previous is the persisted value the execution compared against.
	Previous string
	// First reports a first-ever observation (no prior baseline).
	First bool
	// Err is the cause for failed outcomes.
	Err error
	// ActionErr records an action command failure. The outcome stays
	// Changed: the value was durably recorded before the action ran.
	ActionErr error
	Duration  time.Duration
}

// Runner sequences one task execution end to end.
type Runner struct {
	store       Store
	fetcher     Fetcher
	transformer Transformer
	invoker     ActionInvoker
	logger      *slog.Logger
}

// New wires a runner from its collaborators.
func New(store Store, fetcher Fetcher, transformer Transformer, invoker ActionInvoker, logger *slog.Logger) *Runner {
	return &Runner{
		store:       store,
		fetcher:     fetcher,
		transformer: transformer,
		invoker:     invoker,
		logger:      logging.NewComponentLogger(logger, "runner"),
	}
}

// Run executes the task once: fetch, transform, compare, and on a change
// persist then act.
func (r *Runner) Run(ctx context.Context, task tasks.Descriptor) Result {
	return r.execute(ctx, task, true)
}

// Probe executes the fetch-transform-compare steps without persisting or
// acting. Used by one-shot dry runs.
func (r *Runner) Probe(ctx context.Context, task tasks.Descriptor) Result {
	return r.execute(ctx, task, false)
}

func (r *Runner) execute(ctx context.Context, task tasks.Descriptor, commit bool) Result {
	started := time.Now()
	result := Result{TaskID: task.ID}

	raw, err := r.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		result.Outcome = OutcomeFetchFailed
		result.Err = fmt.Errorf("%w: fetch %s: %w", ErrTransport, task.URL, err)
		result.Duration = time.Since(started)
		return result
	}
	r.logger.Debug("fetched source",
		logging.String(logging.FieldTaskID, task.ID),
		logging.Int("bytes", len(raw)),
	)

	value, err := r.transformer.Transform(ctx, raw, task.Transform)
	if err != nil {
		result.Outcome = OutcomeTransformFailed
		result.Err = fmt.Errorf("%w: transform for %s: %w", ErrTransform, task.ID, err)
		result.Duration = time.Since(started)
		return result
	}
	result.Value = value

	previous, seen := r.store.Get(task.ID)
	result.Previous = previous
	result.First = !seen

	// Byte-exact comparison; the transform owns producing a canonical,
	// comparison-ready value.
	if seen && previous == value {
		result.Outcome = OutcomeUnchanged
		result.Duration = time.Since(started)
		return result
	}

	if !commit {
		result.Outcome = OutcomeChanged
		result.Duration = time.Since(started)
		return result
	}

	if err := r.store.Set(task.ID, value); err != nil {
		result.Outcome = OutcomePersistFailed
		result.Err = fmt.Errorf("%w: record value for %s: %w", ErrPersist, task.ID, err)
		result.Duration = time.Since(started)
		return result
	}

	if err := r.invoker.Invoke(ctx, task.Action, task.ID, value); err != nil {
		result.ActionErr = err
	}

	result.Outcome = OutcomeChanged
	result.Duration = time.Since(started)
	return result
}
