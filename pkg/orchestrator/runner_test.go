package orchestrator

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/core-tools/hsu-bot/pkg/client"
	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_RunDurationIsCleanExit(t *testing.T) {
	bot := newTestBot(t, StartupModeSequential)
	bot.addPlugin(t, "waiter", blockUntilDone)

	started := time.Now()
	err := Run(1, bot.config, bot.registry, client.NewIdleClient("test", &TestLogger{}), nil, &TestLogger{})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), time.Second)
}

func TestRunUntilSignalled_FirstSignalStopsBot(t *testing.T) {
	bot := newTestBot(t, StartupModeSequential)
	bot.addPlugin(t, "waiter", blockUntilDone)
	o := bot.orchestrator(t, client.NewIdleClient("test", &TestLogger{}), &TestLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 2)
	done := make(chan error, 1)
	go func() {
		done <- runUntilSignalled(ctx, cancel, o, sig, &TestLogger{})
	}()

	waitForRunning(t, o)
	sig <- syscall.SIGTERM

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not return")
	}
	assert.Equal(t, StateTerminated, o.State())
}

func TestRunUntilSignalled_SecondSignalAbandonsShutdown(t *testing.T) {
	bot := newTestBot(t, StartupModeSequential)
	bot.config.Bot.ShutdownTimeout = 30 * time.Second

	release := make(chan struct{})
	defer close(release)
	bot.addPlugin(t, "stubborn", func(ctx context.Context) error {
		<-release
		return nil
	})
	o := bot.orchestrator(t, client.NewIdleClient("test", &TestLogger{}), &TestLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 2)
	done := make(chan error, 1)
	go func() {
		done <- runUntilSignalled(ctx, cancel, o, sig, &TestLogger{})
	}()

	waitForRunning(t, o)
	sig <- syscall.SIGINT
	require.Eventually(t, func() bool { return o.State() == StateShuttingDown }, 5*time.Second, 5*time.Millisecond)
	sig <- syscall.SIGINT

	select {
	case err := <-done:
		assert.True(t, errors.IsCancelledError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("second signal did not end the runner")
	}
}
