package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/core-tools/hsu-bot/pkg/client"
	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"

	corelogging "github.com/core-tools/hsu-core/pkg/logging"
)

// Run runs the bot until a signal arrives or runDuration seconds pass
func Run(runDuration int, config *Config, registry *plugins.Registry, botClient client.Client, coreLogger corelogging.Logger, logger logging.Logger) error {
	logger.Infof("Bot runner starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if runDuration > 0 {
		duration := time.Duration(runDuration) * time.Second
		logger.Infof("Using RUN DURATION of %v", duration)
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	orchestrator, err := NewOrchestrator(config, registry, botClient, coreLogger, logger)
	if err != nil {
		return errors.NewInternalError("failed to create orchestrator", err)
	}

	logger.Infof("Enabling signal handling...")

	sig := make(chan os.Signal, 2)
	if runtime.GOOS == "windows" {
		signal.Notify(sig, os.Interrupt) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	defer signal.Stop(sig)

	if err := runUntilSignalled(ctx, cancel, orchestrator, sig, logger); err != nil {
		return err
	}

	logger.Infof("Bot runner stopped")
	return nil
}

// runUntilSignalled cancels the run on the first signal and abandons the
// graceful shutdown on the second one.
func runUntilSignalled(ctx context.Context, cancel context.CancelFunc, orchestrator *Orchestrator, sig <-chan os.Signal, logger logging.Logger) error {
	result := make(chan error, 1)
	go func() {
		result <- orchestrator.Run(ctx)
	}()

	signalled := false
	for {
		select {
		case err := <-result:
			return err
		case receivedSignal := <-sig:
			if signalled {
				logger.Warnf("Bot runner received second signal: %v, abandoning shutdown", receivedSignal)
				return errors.NewCancelledError("shutdown interrupted", nil).WithContext("signal", receivedSignal.String())
			}
			signalled = true
			logger.Infof("Bot runner received signal: %v", receivedSignal)
			cancel()
		}
	}
}
