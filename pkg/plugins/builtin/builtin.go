// Package builtin holds the plugins shipped with the bot binary.
package builtin

import (
	"context"
	"time"

	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Register adds every builtin entry point to registry
func Register(registry *plugins.Registry, logger logging.Logger) error {
	entryPoints := map[string]plugins.EntryPoint{
		"heartbeat": Heartbeat(DefaultHeartbeatInterval, logging.WithPrefix(logger, "plugin: heartbeat , ")),
		"greeter":   Greeter(logging.WithPrefix(logger, "plugin: greeter , ")),
	}

	for name, entryPoint := range entryPoints {
		if err := registry.Register(plugins.EntryPointName(name), entryPoint); err != nil {
			return err
		}
	}
	return nil
}

// Heartbeat logs a beat every interval until ctx is done
func Heartbeat(interval time.Duration, logger logging.Logger) plugins.EntryPoint {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		beats := 0
		for {
			select {
			case <-ticker.C:
				beats++
				logger.Infof("Heartbeat, beats: %d", beats)
			case <-ctx.Done():
				logger.Debugf("Heartbeat stopped, beats: %d", beats)
				return nil
			}
		}
	}
}

// Greeter logs a greeting once and returns
func Greeter(logger logging.Logger) plugins.EntryPoint {
	return func(ctx context.Context) error {
		logger.Infof("Hello from the greeter plugin")
		return nil
	}
}
