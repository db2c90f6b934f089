package orchestrator

import (
	"net"
	"strconv"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"
)

func validateBotConfig(config BotConfig) error {
	// Bot names become PID file names and follow plugin naming rules
	if err := plugins.ValidatePluginName(config.Name); err != nil {
		return errors.NewValidationError("invalid bot name", err).WithContext("name", config.Name)
	}

	if err := ValidateStartupMode(config.StartupMode); err != nil {
		return err
	}

	return ValidateTimeout(config.ShutdownTimeout, "shutdown")
}

func validateLoggingConfig(config LoggingConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return errors.NewValidationError("invalid log level: "+config.Level, err)
	}

	switch config.Format {
	case "console", "json":
		return nil
	default:
		return errors.NewValidationError("invalid log format: "+config.Format, nil)
	}
}

// ValidateStartupMode validates startup mode
func ValidateStartupMode(mode StartupMode) error {
	switch mode {
	case StartupModeSequential, StartupModeConcurrent:
		return nil
	default:
		return errors.NewValidationError("invalid startup mode: "+string(mode), nil)
	}
}

// ValidatePort validates port number
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil).WithContext("port", port)
	}
	return nil
}

// ValidateListenPort accepts 0 for an ephemeral port
func ValidateListenPort(port int) error {
	if port == 0 {
		return nil
	}
	return ValidatePort(port)
}

// ValidateTimeout validates timeout duration
func ValidateTimeout(timeout time.Duration, name string) error {
	if timeout < 0 {
		return errors.NewValidationError(name+" timeout cannot be negative", nil)
	}

	if timeout == 0 {
		return errors.NewValidationError(name+" timeout cannot be zero", nil)
	}

	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
