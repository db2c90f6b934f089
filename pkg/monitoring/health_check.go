package monitoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/core-tools/hsu-bot/pkg/control"
	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthCheckType string

const (
	HealthCheckTypeHTTP HealthCheckType = "http"
	HealthCheckTypeGRPC HealthCheckType = "grpc"
)

// ExpectedLivenessBody is what a live bot answers on its liveness path
const ExpectedLivenessBody = "OK"

type HTTPHealthCheckConfig struct {
	URL string `yaml:"url"`
}

type GRPCHealthCheckConfig struct {
	Address string `yaml:"address"`
	Service string `yaml:"service,omitempty"`
}

type HealthCheckConfig struct {
	Type HealthCheckType `yaml:"type"`

	// HTTP liveness check
	HTTP HTTPHealthCheckConfig `yaml:"http,omitempty"`

	// gRPC health protocol check
	GRPC GRPCHealthCheckConfig `yaml:"grpc,omitempty"`

	// Run options
	RunOptions HealthCheckRunOptions `yaml:"run_options,omitempty"`
}

type HealthCheckRunOptions struct {
	Interval     time.Duration `yaml:"interval,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
}

type HealthCheckStatus string

const (
	HealthCheckStatusUnknown   HealthCheckStatus = "unknown"
	HealthCheckStatusHealthy   HealthCheckStatus = "healthy"
	HealthCheckStatusDegraded  HealthCheckStatus = "degraded"
	HealthCheckStatusUnhealthy HealthCheckStatus = "unhealthy"
)

type HealthCheckState struct {
	Status               HealthCheckStatus
	LastCheck            time.Time
	Message              string
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
}

// HealthStatusCallback is called after every status change
type HealthStatusCallback func(previous, current HealthCheckStatus, message string)

type HealthMonitor interface {
	Start(ctx context.Context) error
	Stop()
	State() HealthCheckState
	CheckOnce(ctx context.Context) HealthCheckState
	SetStatusCallback(callback HealthStatusCallback)
}

type healthMonitor struct {
	config         HealthCheckConfig
	state          HealthCheckState
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	mutex          sync.Mutex
	logger         logging.Logger
	id             string
	statusCallback HealthStatusCallback
}

func NewHealthMonitor(config HealthCheckConfig, id string, logger logging.Logger) HealthMonitor {
	return &healthMonitor{
		config:   config,
		state:    HealthCheckState{Status: HealthCheckStatusUnknown},
		stopChan: make(chan struct{}),
		logger:   logger,
		id:       id,
	}
}

func (h *healthMonitor) Start(ctx context.Context) error {
	h.logger.Infof("Starting health monitor, id: %s, type: %s, interval: %v", h.id, h.config.Type, h.config.RunOptions.Interval)

	if err := ValidateHealthCheckConfig(h.config); err != nil {
		h.logger.Errorf("Health check configuration validation failed, id: %s, error: %v", h.id, err)
		return errors.NewValidationError("invalid health check configuration", err).WithContext("id", h.id)
	}

	h.wg.Add(1)
	go h.loop(ctx)
	return nil
}

func (h *healthMonitor) Stop() {
	h.logger.Infof("Stopping health monitor, id: %s", h.id)
	h.stopOnce.Do(func() { close(h.stopChan) })
	h.wg.Wait()
	h.logger.Infof("Health monitor stopped, id: %s", h.id)
}

func (h *healthMonitor) State() HealthCheckState {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.state
}

// CheckOnce performs a single check, updates the state and returns it
func (h *healthMonitor) CheckOnce(ctx context.Context) HealthCheckState {
	h.performCheck(ctx)
	return h.State()
}

func (h *healthMonitor) loop(ctx context.Context) {
	defer h.wg.Done()

	if !h.sleep(ctx, h.config.RunOptions.InitialDelay) {
		return
	}

	for {
		h.performCheck(ctx)
		if !h.sleep(ctx, h.config.RunOptions.Interval) {
			h.logger.Debugf("Health monitor loop stopping, id: %s", h.id)
			return
		}
	}
}

// sleep waits for d and reports false when the monitor should stop instead
func (h *healthMonitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-h.stopChan:
		return false
	}
}

func (h *healthMonitor) performCheck(ctx context.Context) {
	h.logger.Debugf("Performing health check, id: %s, type: %s", h.id, h.config.Type)

	checkCtx, cancel := context.WithTimeout(ctx, h.config.RunOptions.Timeout)
	defer cancel()

	var isHealthy bool
	var message string

	switch h.config.Type {
	case HealthCheckTypeHTTP:
		isHealthy, message = h.checkHTTP(checkCtx)
	case HealthCheckTypeGRPC:
		isHealthy, message = h.checkGRPC(checkCtx)
	default:
		isHealthy = false
		message = "Unknown health check type: " + string(h.config.Type)
		h.logger.Errorf("Unknown health check type, id: %s, type: %s", h.id, h.config.Type)
	}

	h.updateState(isHealthy, message)
}

// nextStatus applies one probe result: a pass is healthy, the first miss
// degrades and any further miss is unhealthy
func nextStatus(state HealthCheckState, isHealthy bool) HealthCheckState {
	if isHealthy {
		state.ConsecutiveSuccesses++
		state.ConsecutiveFailures = 0
		state.Status = HealthCheckStatusHealthy
		return state
	}

	state.ConsecutiveFailures++
	state.ConsecutiveSuccesses = 0
	if state.ConsecutiveFailures == 1 {
		state.Status = HealthCheckStatusDegraded
	} else {
		state.Status = HealthCheckStatusUnhealthy
	}
	return state
}

func (h *healthMonitor) updateState(isHealthy bool, message string) {
	h.mutex.Lock()
	previous := h.state
	current := nextStatus(previous, isHealthy)
	current.LastCheck = time.Now()
	current.Message = message
	h.state = current
	callback := h.statusCallback
	h.mutex.Unlock()

	switch {
	case current.Status == previous.Status && isHealthy:
		h.logger.Debugf("Health check passed, id: %s, consecutive_successes: %d", h.id, current.ConsecutiveSuccesses)
	case current.Status == previous.Status:
		h.logger.Warnf("Health check failed, id: %s, status: %s, consecutive_failures: %d, message: %s",
			h.id, current.Status, current.ConsecutiveFailures, message)
	case isHealthy:
		h.logger.Infof("Health check recovered, id: %s, previous: %s", h.id, previous.Status)
	default:
		h.logger.Warnf("Health check status changed, id: %s, status: %s->%s, message: %s",
			h.id, previous.Status, current.Status, message)
	}

	if callback != nil && current.Status != previous.Status {
		callback(previous.Status, current.Status, message)
	}
}

func (h *healthMonitor) checkHTTP(ctx context.Context) (bool, string) {
	h.logger.Debugf("Performing HTTP health check, id: %s, url: %s", h.id, h.config.HTTP.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.config.HTTP.URL, nil)
	if err != nil {
		return false, fmt.Sprintf("Failed to create HTTP request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, fmt.Sprintf("HTTP request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, fmt.Sprintf("Failed to read HTTP response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("HTTP health check failed: %s", resp.Status)
	}

	if strings.TrimSpace(string(body)) != ExpectedLivenessBody {
		return false, fmt.Sprintf("HTTP health check failed: unexpected body %q", string(body))
	}

	return true, fmt.Sprintf("HTTP health check passed: %s", resp.Status)
}

func (h *healthMonitor) checkGRPC(ctx context.Context) (bool, string) {
	h.logger.Debugf("Performing gRPC health check, id: %s, address: %s, service: %q",
		h.id, h.config.GRPC.Address, h.config.GRPC.Service)

	conn, err := grpc.DialContext(ctx, h.config.GRPC.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return false, fmt.Sprintf("gRPC connection failed: %v", err)
	}
	defer conn.Close()

	gateway := control.NewGRPCClientGateway(conn, h.logger)
	response, err := gateway.Check(ctx, h.config.GRPC.Service)
	if err != nil {
		return false, fmt.Sprintf("gRPC health check failed: %v", err)
	}

	if response.Status != healthpb.HealthCheckResponse_SERVING {
		return false, fmt.Sprintf("gRPC health check failed: %s", response.Status)
	}

	return true, fmt.Sprintf("gRPC health check passed: %s", response.Status)
}

func (h *healthMonitor) SetStatusCallback(callback HealthStatusCallback) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.statusCallback = callback
	h.logger.Debugf("Status callback set for health monitor, id: %s", h.id)
}
