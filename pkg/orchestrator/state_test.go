package orchestrator

import (
	"testing"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_FullLifecycle(t *testing.T) {
	sm := NewStateMachine(&TestLogger{})
	assert.Equal(t, StateInit, sm.Current())

	for _, state := range []State{
		StateStartingHealth,
		StateStartingClientAndPlugins,
		StateRunning,
		StateShuttingDown,
		StateTerminated,
	} {
		require.NoError(t, sm.Transition(state))
		assert.Equal(t, state, sm.Current())
	}

	history := sm.History()
	require.Len(t, history, 5)
	assert.Equal(t, StateInit, history[0].From)
	assert.Equal(t, StateTerminated, history[4].To)
}

func TestStateMachine_RejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
	}{
		{"init_to_running", nil, StateRunning},
		{"init_to_terminated", nil, StateTerminated},
		{"health_to_running", []State{StateStartingHealth}, StateRunning},
		{"running_to_starting", []State{StateStartingHealth, StateStartingClientAndPlugins, StateRunning}, StateStartingHealth},
		{"terminated_is_final", []State{StateStartingHealth, StateShuttingDown, StateTerminated}, StateStartingHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine(&TestLogger{})
			for _, state := range tt.path {
				require.NoError(t, sm.Transition(state))
			}
			before := sm.Current()

			err := sm.Transition(tt.next)
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, before, sm.Current())
		})
	}
}

func TestStateMachine_EarlyShutdown(t *testing.T) {
	sm := NewStateMachine(&TestLogger{})
	require.NoError(t, sm.Transition(StateStartingHealth))
	require.NoError(t, sm.Transition(StateStartingClientAndPlugins))
	require.NoError(t, sm.Transition(StateShuttingDown))
	require.NoError(t, sm.Transition(StateTerminated))
}
