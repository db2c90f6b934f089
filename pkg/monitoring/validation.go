package monitoring

import (
	"net/url"
	"strings"

	"github.com/core-tools/hsu-bot/pkg/errors"
)

// ValidateHealthCheckConfig validates health check configuration
func ValidateHealthCheckConfig(config HealthCheckConfig) error {
	if err := ValidateHealthCheckRunOptions(config.RunOptions); err != nil {
		return errors.NewValidationError("invalid health check run options", err)
	}

	switch config.Type {
	case HealthCheckTypeHTTP:
		if config.HTTP.URL == "" {
			return errors.NewValidationError("HTTP URL is required for HTTP health check", nil)
		}
		parsed, err := url.Parse(config.HTTP.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return errors.NewValidationError("HTTP URL must be an absolute http(s) URL", err).WithContext("url", config.HTTP.URL)
		}

	case HealthCheckTypeGRPC:
		if config.GRPC.Address == "" {
			return errors.NewValidationError("gRPC address is required for gRPC health check", nil)
		}
		if !strings.Contains(config.GRPC.Address, ":") {
			return errors.NewValidationError("invalid gRPC address format (missing port)", nil).WithContext("address", config.GRPC.Address)
		}

	default:
		return errors.NewValidationError("unsupported health check type: "+string(config.Type), nil)
	}

	return nil
}

// ValidateHealthCheckRunOptions validates health check run options
func ValidateHealthCheckRunOptions(options HealthCheckRunOptions) error {
	if options.Interval <= 0 {
		return errors.NewValidationError("health check interval must be positive", nil)
	}

	if options.Timeout <= 0 {
		return errors.NewValidationError("health check timeout must be positive", nil)
	}

	if options.Timeout >= options.Interval {
		return errors.NewValidationError("health check timeout must be less than interval", nil)
	}

	if options.InitialDelay < 0 {
		return errors.NewValidationError("health check initial delay cannot be negative", nil)
	}

	return nil
}
