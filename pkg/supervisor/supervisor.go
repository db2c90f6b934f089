package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// TaskObserver is told whenever a plugin attempt starts or stops running
type TaskObserver func(name string, running bool)

type SupervisorOptions struct {
	Observer TaskObserver
}

// Supervisor launches plugin entry points as independent goroutines. A plugin
// failing, panicking or hanging never affects the other plugins or the caller.
type Supervisor struct {
	options SupervisorOptions
	logger  logging.Logger
	tasks   cmap.ConcurrentMap[string, *Task]
	order   []string // Launch order, tasks are never removed
	mutex   sync.Mutex
}

func NewSupervisor(options SupervisorOptions, logger logging.Logger) *Supervisor {
	return &Supervisor{
		options: options,
		logger:  logger,
		tasks:   cmap.New[*Task](),
	}
}

// Launch starts every resolved unit and returns without waiting for any of
// them. There is one outcome per unit, in unit order.
func (s *Supervisor) Launch(ctx context.Context, units []plugins.Unit) []LaunchOutcome {
	outcomes := make([]LaunchOutcome, 0, len(units))

	for _, unit := range units {
		switch unit.Status {
		case plugins.UnitStatusResolved:
			outcomes = append(outcomes, s.launchUnit(ctx, unit))
		case plugins.UnitStatusMissingEntryPoint:
			s.logger.Warnf("Not launching plugin without entry point, name: %s, expected: %s",
				unit.Name, plugins.EntryPointName(unit.Name))
			outcomes = append(outcomes, outcomeForUnresolved(unit))
		default:
			s.logger.Errorf("Not launching plugin that failed to import, name: %s, error: %v", unit.Name, unit.Err)
			outcomes = append(outcomes, outcomeForUnresolved(unit))
		}
	}

	return outcomes
}

func (s *Supervisor) launchUnit(ctx context.Context, unit plugins.Unit) LaunchOutcome {
	if unit.EntryPoint == nil {
		err := errors.NewPluginLoadError("resolved plugin has no entry point", nil).WithContext("plugin", unit.Name)
		s.logger.Errorf("Not launching plugin, name: %s, error: %v", unit.Name, err)
		return LaunchOutcome{Name: unit.Name, Status: StatusImportFailed, Err: err}
	}

	runID := uuid.NewString()
	taskCtx, cancel := context.WithCancel(ctx)
	taskLogger := logging.WithPrefix(s.logger, fmt.Sprintf("plugin: %s , ", unit.Name))
	task := newTask(unit, runID, cancel, taskLogger)

	if !s.tasks.SetIfAbsent(unit.Name, task) {
		cancel()
		err := errors.NewPluginLoadError("plugin with the same name already launched", nil).WithContext("plugin", unit.Name)
		s.logger.Errorf("Not launching duplicate plugin, name: %s, source: %s", unit.Name, unit.Source)
		return LaunchOutcome{Name: unit.Name, Status: StatusImportFailed, Err: err}
	}

	s.mutex.Lock()
	s.order = append(s.order, unit.Name)
	s.mutex.Unlock()

	s.logger.Infof("Running plugin, name: %s, run_id: %s, restart: %s", unit.Name, runID, unit.Manifest.Restart.Policy)

	// Snapshot before the goroutine can finish the task
	outcome := task.Outcome()
	go s.runTask(taskCtx, task)

	return outcome
}

func (s *Supervisor) runTask(ctx context.Context, task *Task) {
	defer close(task.done)
	defer task.cancel()

	restartBackOff := newRestartBackOff(task.unit.Manifest.Restart)

	for {
		attempt := task.beginAttempt()
		s.notify(task.Name(), true)

		task.logger.Debugf("Invoking entry point, attempt: %d", attempt)
		err := invoke(ctx, task.unit)

		task.endAttempt()
		s.notify(task.Name(), false)

		if ctx.Err() != nil && (err == nil || stderrors.Is(err, ctx.Err())) {
			task.logger.Infof("Plugin stopped")
			task.finish(StatusCompleted, nil)
			return
		}

		if err != nil {
			err = errors.NewPluginRuntimeError("plugin failed", err).
				WithContext("plugin", task.Name()).
				WithContext("attempt", attempt)
			task.logger.Errorf("Plugin failed, attempt: %d, error: %v", attempt, err)
		} else {
			task.logger.Infof("Plugin completed, attempt: %d", attempt)
		}

		if ctx.Err() != nil || !shouldRestart(task.unit.Manifest.Restart.Policy, err) {
			s.finishTask(task, err)
			return
		}

		delay := restartBackOff.NextBackOff()
		if delay == backoff.Stop {
			task.logger.Warnf("Restart limit reached, attempts: %d", attempt)
			s.finishTask(task, err)
			return
		}

		task.logger.Infof("Restarting plugin, delay: %v", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.finishTask(task, err)
			return
		}
	}
}

func (s *Supervisor) finishTask(task *Task, err error) {
	if err != nil {
		task.finish(StatusRuntimeFailed, err)
		return
	}
	task.finish(StatusCompleted, nil)
}

func (s *Supervisor) notify(name string, running bool) {
	if s.options.Observer != nil {
		s.options.Observer(name, running)
	}
}

// invoke runs the entry point once, turning a panic into an error
func invoke(ctx context.Context, unit plugins.Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPluginRuntimeError(fmt.Sprintf("plugin panicked: %v", r), nil).WithContext("plugin", unit.Name)
		}
	}()
	return unit.EntryPoint(ctx)
}

// Wait blocks until every launched plugin has finished or ctx is done, and
// returns the latest outcome of each in launch order.
func (s *Supervisor) Wait(ctx context.Context) []LaunchOutcome {
	tasks := s.Tasks()
	outcomes := make([]LaunchOutcome, 0, len(tasks))

	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-ctx.Done():
		}
		outcomes = append(outcomes, task.Outcome())
	}

	return outcomes
}

// LaunchAll launches units and waits for all of them to finish
func (s *Supervisor) LaunchAll(ctx context.Context, units []plugins.Unit) []LaunchOutcome {
	outcomes := s.Launch(ctx, units)

	final := make(map[string]LaunchOutcome)
	for _, outcome := range s.Wait(ctx) {
		final[outcome.Name] = outcome
	}

	for i, outcome := range outcomes {
		if outcome.Status != StatusStarted {
			continue
		}
		if finished, ok := final[outcome.Name]; ok && finished.RunID == outcome.RunID {
			outcomes[i] = finished
		}
	}
	return outcomes
}

// Tasks returns the handles of all launched plugins in launch order
func (s *Supervisor) Tasks() []*Task {
	s.mutex.Lock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	s.mutex.Unlock()

	tasks := make([]*Task, 0, len(order))
	for _, name := range order {
		if task, ok := s.tasks.Get(name); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Stop cancels every plugin and waits for them until ctx is done
func (s *Supervisor) Stop(ctx context.Context) error {
	tasks := s.Tasks()
	if len(tasks) == 0 {
		return nil
	}

	s.logger.Infof("Stopping %d plugins...", len(tasks))

	for _, task := range tasks {
		task.Cancel()
	}

	pending := make([]string, 0)
	for _, task := range tasks {
		select {
		case <-task.Done():
			continue
		default:
		}
		select {
		case <-task.Done():
		case <-ctx.Done():
			pending = append(pending, task.Name())
		}
	}

	if len(pending) > 0 {
		s.logger.Warnf("Plugins did not stop in time: %v", pending)
		return errors.NewCancelledError("plugins did not stop in time", ctx.Err()).WithContext("plugins", pending)
	}

	s.logger.Infof("Plugins stopped")
	return nil
}
