package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewZapLoggerFromZap(zap.New(core)), logs
}

func TestRegister(t *testing.T) {
	logger, _ := observedLogger()
	registry := plugins.NewRegistry()

	require.NoError(t, Register(registry, logger))
	assert.Equal(t, []string{"run_greeter_plugin", "run_heartbeat_plugin"}, registry.Names())

	err := Register(registry, logger)
	assert.True(t, errors.IsValidationError(err))
}

func TestHeartbeat_BeatsUntilCancelled(t *testing.T) {
	logger, logs := observedLogger()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Heartbeat(time.Millisecond, logger)(ctx)
	}()

	assert.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("Heartbeat, beats: 2").Len() > 0
	}, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("heartbeat did not stop")
	}
}

func TestGreeter(t *testing.T) {
	logger, logs := observedLogger()

	require.NoError(t, Greeter(logger)(context.Background()))
	assert.Equal(t, 1, logs.FilterMessageSnippet("Hello").Len())
}
