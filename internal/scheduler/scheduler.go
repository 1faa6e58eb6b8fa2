// Package scheduler drives one timer loop per monitored task and reports
// run outcomes to the daemon's supervisor over a channel.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"vigil/internal/logging"
	"vigil/internal/runner"
	"vigil/internal/tasks"
)

const defaultGrace = 10 * time.Second

// EventKind discriminates supervisor messages.
type EventKind string

const (
	// EventRunCompleted reports a finished execution, successful or not.
	EventRunCompleted EventKind = "run_completed"
	// EventTickSkipped reports a tick dropped because the previous
	// execution of the same task was still in flight.
	EventTickSkipped EventKind = "tick_skipped"
)

// Event is the message a task loop sends to the supervisor.
type Event struct {
	Kind   EventKind
	TaskID string
	Result runner.Result
	At     time.Time
}

// Executor runs a single task pass. *runner.Runner satisfies this.
type Executor interface {
	Run(ctx context.Context, task tasks.Descriptor) runner.Result
}

type taskLoop struct {
	task tasks.Descriptor

	mu   sync.Mutex
	busy bool
}

// Scheduler owns the per-task timer loops. Loops tick independently and
// never block each other; each task has at most one execution in flight.
type Scheduler struct {
	executor Executor
	loops    []*taskLoop
	logger   *slog.Logger
	events   chan Event
	grace    time.Duration

	mu         sync.Mutex
	running    bool
	loopCtx    context.Context
	loopCancel context.CancelFunc
	runCtx     context.Context
	runCancel  context.CancelFunc

	wg    sync.WaitGroup
	runWG sync.WaitGroup
}

// New builds a scheduler over the supplied task set. grace bounds how
// long Stop waits for in-flight executions before abandoning them.
func New(executor Executor, taskSet []tasks.Descriptor, grace time.Duration, logger *slog.Logger) *Scheduler {
	if grace <= 0 {
		grace = defaultGrace
	}
	loops := make([]*taskLoop, 0, len(taskSet))
	for _, task := range taskSet {
		loops = append(loops, &taskLoop{task: task})
	}
	buffer := 2 * len(taskSet)
	if buffer < 16 {
		buffer = 16
	}
	return &Scheduler{
		executor: executor,
		loops:    loops,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		events:   make(chan Event, buffer),
		grace:    grace,
	}
}

// Events exposes the supervisor channel. The channel is never closed;
// consumers stop reading once Stop has returned.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Start launches one loop goroutine per task. Every loop fires its task
// immediately, then on interval cadence.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || s.executor == nil {
		return errors.New("scheduler unavailable")
	}
	if len(s.loops) == 0 {
		return errors.New("no tasks configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	s.loopCtx, s.loopCancel = context.WithCancel(ctx)
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.running = true

	for _, loop := range s.loops {
		s.wg.Add(1)
		go s.run(loop)
	}
	return nil
}

// Stop shuts the scheduler down: ticking stops first, then in-flight
// executions get up to the grace period to finish before their context
// is canceled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	loopCancel := s.loopCancel
	runCancel := s.runCancel
	s.mu.Unlock()

	loopCancel()
	s.wg.Wait()

	settled := make(chan struct{})
	go func() {
		s.runWG.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-time.After(s.grace):
		s.logger.Warn("shutdown grace expired; abandoning in-flight task runs",
			logging.Duration("grace", s.grace),
			logging.String(logging.FieldEventType, "shutdown_grace_expired"),
			logging.String(logging.FieldImpact, "abandoned runs are killed and not recorded"),
		)
	}
	runCancel()
}

func (s *Scheduler) run(loop *taskLoop) {
	defer s.wg.Done()

	interval := loop.task.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.tick(loop)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.loopCtx.Done():
			return
		case <-ticker.C:
			s.tick(loop)
		}
	}
}

// tick starts one execution unless the previous one is still running, in
// which case the tick is dropped and reported.
func (s *Scheduler) tick(loop *taskLoop) {
	loop.mu.Lock()
	if loop.busy {
		loop.mu.Unlock()
		s.logger.Warn("tick skipped; previous run still in flight",
			logging.String(logging.FieldTaskID, loop.task.ID),
			logging.Duration("interval", loop.task.Interval),
			logging.String(logging.FieldEventType, "tick_skipped"),
			logging.String(logging.FieldErrorHint, "raise check_every or speed up the transform command"),
		)
		s.emit(s.loopCtx, Event{Kind: EventTickSkipped, TaskID: loop.task.ID, At: time.Now()})
		return
	}
	loop.busy = true
	loop.mu.Unlock()

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()

		result := s.executor.Run(s.runCtx, loop.task)

		loop.mu.Lock()
		loop.busy = false
		loop.mu.Unlock()

		// Completion events watch the run context so results reached
		// during the grace window still land at the supervisor.
		s.emit(s.runCtx, Event{Kind: EventRunCompleted, TaskID: loop.task.ID, Result: result, At: time.Now()})
	}()
}

// emit delivers an event to the supervisor, giving up once ctx is
// canceled so a departed consumer cannot strand a goroutine.
func (s *Scheduler) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}
