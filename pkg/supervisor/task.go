package supervisor

import (
	"context"
	"sync"

	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"
)

// Task is the handle of one launched plugin. It is kept for the lifetime of
// the supervisor so shutdown can cancel and join it.
type Task struct {
	unit   plugins.Unit
	runID  string
	logger logging.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mutex    sync.Mutex
	running  bool
	attempts int
	outcome  LaunchOutcome
}

func newTask(unit plugins.Unit, runID string, cancel context.CancelFunc, logger logging.Logger) *Task {
	return &Task{
		unit:   unit,
		runID:  runID,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
		outcome: LaunchOutcome{
			Name:   unit.Name,
			Status: StatusStarted,
			RunID:  runID,
		},
	}
}

func (t *Task) Name() string {
	return t.unit.Name
}

func (t *Task) RunID() string {
	return t.runID
}

// Done is closed when the plugin has finished for good, restarts included
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel asks the plugin to stop through its context
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Running() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.running
}

// Outcome returns started while the task is alive and the final outcome after
func (t *Task) Outcome() LaunchOutcome {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	outcome := t.outcome
	outcome.Attempts = t.attempts
	return outcome
}

func (t *Task) beginAttempt() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.running = true
	t.attempts++
	return t.attempts
}

func (t *Task) endAttempt() {
	t.mutex.Lock()
	t.running = false
	t.mutex.Unlock()
}

func (t *Task) finish(status LaunchStatus, err error) {
	t.mutex.Lock()
	t.outcome.Status = status
	t.outcome.Err = err
	t.mutex.Unlock()
}
