package orchestrator

import (
	"sync"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
)

// State represents the current lifecycle phase of the bot process
type State string

const (
	StateInit                     State = "init"
	StateStartingHealth           State = "starting_health"
	StateStartingClientAndPlugins State = "starting_client_and_plugins"
	StateRunning                  State = "running"
	StateShuttingDown             State = "shutting_down"
	StateTerminated               State = "terminated"
)

var validTransitions = map[State][]State{
	StateInit:                     {StateStartingHealth},
	StateStartingHealth:           {StateStartingClientAndPlugins, StateShuttingDown},
	StateStartingClientAndPlugins: {StateRunning, StateShuttingDown},
	StateRunning:                  {StateShuttingDown},
	StateShuttingDown:             {StateTerminated},
	StateTerminated:               {},
}

type StateTransition struct {
	From      State
	To        State
	Timestamp time.Time
}

// StateMachine tracks the orchestrator lifecycle and rejects out of order transitions
type StateMachine struct {
	current State
	history []StateTransition
	mutex   sync.Mutex
	logger  logging.Logger
}

func NewStateMachine(logger logging.Logger) *StateMachine {
	return &StateMachine{
		current: StateInit,
		history: make([]StateTransition, 0, len(validTransitions)),
		logger:  logger,
	}
}

func (sm *StateMachine) Current() State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.current
}

func (sm *StateMachine) History() []StateTransition {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	history := make([]StateTransition, len(sm.history))
	copy(history, sm.history)
	return history
}

func (sm *StateMachine) Transition(to State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	from := sm.current
	if !isValidTransition(from, to) {
		sm.logger.Errorf("Invalid state transition, from: %s, to: %s", from, to)
		return errors.NewValidationError("invalid state transition", nil).
			WithContext("from", string(from)).
			WithContext("to", string(to))
	}

	sm.current = to
	sm.history = append(sm.history, StateTransition{From: from, To: to, Timestamp: time.Now()})
	sm.logger.Debugf("State transition, %s->%s", from, to)
	return nil
}

func isValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
