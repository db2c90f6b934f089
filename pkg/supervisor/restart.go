package supervisor

import (
	"github.com/core-tools/hsu-bot/pkg/plugins"

	"github.com/cenkalti/backoff/v4"
)

func shouldRestart(policy plugins.RestartPolicy, err error) bool {
	switch policy {
	case plugins.RestartAlways:
		return true
	case plugins.RestartOnFailure:
		return err != nil
	default:
		return false
	}
}

// newRestartBackOff returns the delay schedule between restarts. It never
// gives up on elapsed time, only on MaxRetries when that is set.
func newRestartBackOff(config plugins.RestartConfig) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	if config.InitialInterval > 0 {
		exponential.InitialInterval = config.InitialInterval
	}
	if config.MaxInterval > 0 {
		exponential.MaxInterval = config.MaxInterval
	}
	exponential.MaxElapsedTime = 0
	exponential.Reset()

	if config.MaxRetries > 0 {
		return backoff.WithMaxRetries(exponential, uint64(config.MaxRetries))
	}
	return exponential
}
