package monitoring

import (
	"testing"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func validRunOptions() HealthCheckRunOptions {
	return HealthCheckRunOptions{
		Interval: 5 * time.Second,
		Timeout:  time.Second,
	}
}

func TestValidateHealthCheckConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    HealthCheckConfig
		shouldErr bool
	}{
		{
			name: "valid_http",
			config: HealthCheckConfig{
				Type:       HealthCheckTypeHTTP,
				HTTP:       HTTPHealthCheckConfig{URL: "http://localhost:8080/health"},
				RunOptions: validRunOptions(),
			},
			shouldErr: false,
		},
		{
			name: "valid_grpc",
			config: HealthCheckConfig{
				Type:       HealthCheckTypeGRPC,
				GRPC:       GRPCHealthCheckConfig{Address: "localhost:50055"},
				RunOptions: validRunOptions(),
			},
			shouldErr: false,
		},
		{
			name: "relative_http_url",
			config: HealthCheckConfig{
				Type:       HealthCheckTypeHTTP,
				HTTP:       HTTPHealthCheckConfig{URL: "/health"},
				RunOptions: validRunOptions(),
			},
			shouldErr: true,
		},
		{
			name: "missing_http_url",
			config: HealthCheckConfig{
				Type:       HealthCheckTypeHTTP,
				RunOptions: validRunOptions(),
			},
			shouldErr: true,
		},
		{
			name: "grpc_address_without_port",
			config: HealthCheckConfig{
				Type:       HealthCheckTypeGRPC,
				GRPC:       GRPCHealthCheckConfig{Address: "localhost"},
				RunOptions: validRunOptions(),
			},
			shouldErr: true,
		},
		{
			name: "unsupported_type",
			config: HealthCheckConfig{
				Type:       HealthCheckType("exec"),
				RunOptions: validRunOptions(),
			},
			shouldErr: true,
		},
		{
			name: "timeout_not_below_interval",
			config: HealthCheckConfig{
				Type: HealthCheckTypeHTTP,
				HTTP: HTTPHealthCheckConfig{URL: "http://localhost:8080/health"},
				RunOptions: HealthCheckRunOptions{
					Interval: time.Second,
					Timeout:  time.Second,
				},
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHealthCheckConfig(tt.config)

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
