package control

import (
	"sync"

	"github.com/core-tools/hsu-bot/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// OverallService is the health service name that reports the bot as a whole
const OverallService = ""

// HealthHandler publishes bot and plugin status through the standard gRPC
// health service. Plugin services are reported under their plugin name.
type HealthHandler struct {
	server  *health.Server
	logger  logging.Logger
	plugins map[string]bool
	mutex   sync.Mutex
}

func NewHealthHandler(logger logging.Logger) *HealthHandler {
	server := health.NewServer()
	server.SetServingStatus(OverallService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthHandler{
		server:  server,
		logger:  logger,
		plugins: make(map[string]bool),
	}
}

func RegisterGRPCServerHandler(grpcServerRegistrar grpc.ServiceRegistrar, handler *HealthHandler) {
	healthpb.RegisterHealthServer(grpcServerRegistrar, handler.server)
}

// SetServing sets the overall bot status
func (h *HealthHandler) SetServing(serving bool) {
	h.server.SetServingStatus(OverallService, servingStatus(serving))
	h.logger.Debugf("Overall health status set, serving: %t", serving)
}

// SetPluginRunning has the signature of a supervisor task observer
func (h *HealthHandler) SetPluginRunning(name string, running bool) {
	h.mutex.Lock()
	h.plugins[name] = running
	h.mutex.Unlock()

	h.server.SetServingStatus(name, servingStatus(running))
	h.logger.Debugf("Plugin health status set, name: %s, running: %t", name, running)
}

// Plugins returns the last known running flag of every reported plugin
func (h *HealthHandler) Plugins() map[string]bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	plugins := make(map[string]bool, len(h.plugins))
	for name, running := range h.plugins {
		plugins[name] = running
	}
	return plugins
}

// Shutdown reports NOT_SERVING for every service and ignores later updates
func (h *HealthHandler) Shutdown() {
	h.server.Shutdown()
	h.logger.Debugf("Health handler shut down")
}

func servingStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
