package daemon

import (
	"strings"

	"github.com/google/uuid"

	"vigil/internal/history"
	"vigil/internal/logging"
	"vigil/internal/runner"
	"vigil/internal/scheduler"
)

// maxLoggedValueChars bounds how much of a canonical value lands in a log
// line; the full value is always in the state store and the history journal.
const maxLoggedValueChars = 120

// supervise consumes scheduler events until Stop closes supervisorQuit,
// then drains whatever is still buffered before signalling supervisorDone.
// Observers are strictly best-effort: a history or notification failure is
// logged and never feeds back into scheduling or state.
func (d *Daemon) supervise() {
	defer close(d.supervisorDone)

	events := d.sched.Events()
	for {
		select {
		case event := <-events:
			d.handleEvent(event)
		case <-d.supervisorQuit:
			for {
				select {
				case event := <-events:
					d.handleEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Daemon) handleEvent(event scheduler.Event) {
	switch event.Kind {
	case scheduler.EventTickSkipped:
		// The scheduler already logged the warning; the journal entry makes
		// the dropped tick queryable after the fact.
		d.recordRun(history.Record{
			RunID:      uuid.NewString(),
			TaskID:     event.TaskID,
			Outcome:    string(scheduler.EventTickSkipped),
			Skipped:    true,
			StartedAt:  event.At,
			FinishedAt: event.At,
		})
	case scheduler.EventRunCompleted:
		d.handleRunCompleted(event)
	}
}

func (d *Daemon) handleRunCompleted(event scheduler.Event) {
	result := event.Result
	runID := uuid.NewString()

	record := history.Record{
		RunID:      runID,
		TaskID:     result.TaskID,
		Outcome:    string(result.Outcome),
		StartedAt:  event.At.Add(-result.Duration),
		FinishedAt: event.At,
	}

	switch result.Outcome {
	case runner.OutcomeChanged:
		record.Value = result.Value
		d.logger.Info("task value changed",
			logging.String(logging.FieldTaskID, result.TaskID),
			logging.String(logging.FieldRunID, runID),
			logging.String("value", clipValue(result.Value)),
			logging.String("previous", clipValue(result.Previous)),
			logging.Bool("first_observation", result.First),
			logging.Duration("duration", result.Duration),
			logging.String(logging.FieldEventType, "task_changed"),
		)
		if err := d.notifier.ChangeDetected(d.ctx, result.TaskID, result.Value); err != nil {
			d.warnNotifyFailed(err)
		}
	case runner.OutcomeUnchanged:
		d.logger.Debug("task value unchanged",
			logging.String(logging.FieldTaskID, result.TaskID),
			logging.String(logging.FieldRunID, runID),
			logging.Duration("duration", result.Duration),
			logging.String(logging.FieldEventType, "task_unchanged"),
		)
	case runner.OutcomeFetchFailed, runner.OutcomeTransformFailed, runner.OutcomePersistFailed:
		if result.Err != nil {
			record.Error = result.Err.Error()
		}
		logging.WarnWithContext(d.logger, "task run failed", string(result.Outcome),
			logging.String(logging.FieldTaskID, result.TaskID),
			logging.String(logging.FieldRunID, runID),
			logging.String(logging.FieldOutcome, string(result.Outcome)),
			logging.Error(result.Err),
			logging.Duration("duration", result.Duration),
			logging.String(logging.FieldErrorHint, failureHint(result.Outcome)),
			logging.String(logging.FieldImpact, failureImpact(result.Outcome)),
		)
		if err := d.notifier.TaskFailing(d.ctx, result.TaskID, result.Err); err != nil {
			d.warnNotifyFailed(err)
		}
	}

	if result.ActionErr != nil {
		logging.WarnWithContext(d.logger, "action command failed", "action_failed",
			logging.String(logging.FieldTaskID, result.TaskID),
			logging.String(logging.FieldRunID, runID),
			logging.Error(result.ActionErr),
			logging.String(logging.FieldErrorHint, "run the action command by hand with VIGIL_VALUE set"),
			logging.String(logging.FieldImpact, "the change is recorded but its side effect did not run"),
		)
	}

	d.recordRun(record)
}

func (d *Daemon) recordRun(record history.Record) {
	if err := d.recorder.RecordRun(d.ctx, record); err != nil {
		logging.WarnWithContext(d.logger, "failed to record run in history", "history_record_failed",
			logging.String(logging.FieldTaskID, record.TaskID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history database path and permissions"),
			logging.String(logging.FieldImpact, "this run is missing from vigil history"),
		)
	}
}

func failureHint(outcome runner.Outcome) string {
	switch outcome {
	case runner.OutcomeFetchFailed:
		return "check the URL and network reachability"
	case runner.OutcomeTransformFailed:
		return "run the transform command by hand against the fetched content"
	case runner.OutcomePersistFailed:
		return "check state file permissions and free disk space"
	default:
		return "check logs for details"
	}
}

func failureImpact(outcome runner.Outcome) string {
	if outcome == runner.OutcomePersistFailed {
		return "the change was not recorded and the action did not fire; retried next tick"
	}
	return "no comparison happened this tick; retried next tick"
}

func clipValue(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= maxLoggedValueChars {
		return value
	}
	return string(runes[:maxLoggedValueChars]) + "..."
}
