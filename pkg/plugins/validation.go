package plugins

import "github.com/core-tools/hsu-bot/pkg/errors"

// ValidatePluginName validates the name derived from a manifest file
func ValidatePluginName(name string) error {
	if name == "" {
		return errors.NewValidationError("plugin name cannot be empty", nil)
	}

	if len(name) > 64 {
		return errors.NewValidationError("plugin name cannot exceed 64 characters", nil)
	}

	for _, char := range name {
		if !isValidNameChar(char) {
			return errors.NewValidationError("plugin name contains invalid characters: only letters, numbers, hyphens, and underscores are allowed", nil)
		}
	}

	return nil
}

// ValidateRestartConfig validates a plugin restart policy
func ValidateRestartConfig(config RestartConfig) error {
	switch config.Policy {
	case RestartNever, RestartOnFailure, RestartAlways:
	default:
		return errors.NewValidationError("invalid restart policy: "+string(config.Policy), nil)
	}

	if config.MaxRetries < 0 {
		return errors.NewValidationError("max retries cannot be negative", nil)
	}

	if config.InitialInterval < 0 || config.MaxInterval < 0 {
		return errors.NewValidationError("restart intervals cannot be negative", nil)
	}

	if config.MaxInterval > 0 && config.InitialInterval > config.MaxInterval {
		return errors.NewValidationError("initial interval cannot exceed max interval", nil)
	}

	return nil
}

func isValidNameChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '_'
}
