package control

import (
	"context"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"

	corecontrol "github.com/core-tools/hsu-core/pkg/control"
	coredomain "github.com/core-tools/hsu-core/pkg/domain"
	corelogging "github.com/core-tools/hsu-core/pkg/logging"
)

type ServerOptions struct {
	Port int
}

// Server hosts the core ping service and the health service on one gRPC port
type Server struct {
	server  corecontrol.Server
	handler *HealthHandler
	logger  logging.Logger
}

func NewServer(options ServerOptions, handler *HealthHandler, coreLogger corelogging.Logger, logger logging.Logger) (*Server, error) {
	if options.Port <= 0 || options.Port > 65535 {
		return nil, errors.NewValidationError("control port must be between 1 and 65535", nil).WithContext("port", options.Port)
	}

	serverOptions := corecontrol.ServerOptions{
		Port: options.Port,
	}

	server, err := corecontrol.NewServer(serverOptions, coreLogger)
	if err != nil {
		return nil, errors.NewNetworkError("failed to create control server", err).WithContext("port", options.Port)
	}

	// Register core services
	coreHandler := coredomain.NewDefaultHandler(coreLogger)
	corecontrol.RegisterGRPCServerHandler(server.GRPC(), coreHandler, coreLogger)

	// Register health service
	RegisterGRPCServerHandler(server.GRPC(), handler)

	return &Server{
		server:  server,
		handler: handler,
		logger:  logger,
	}, nil
}

func (s *Server) Start(ctx context.Context) {
	s.logger.Infof("Starting control server...")
	s.server.Start(ctx)
}

func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Infof("Stopping control server...")
	s.handler.Shutdown()
	s.server.Shutdown(ctx)
	s.logger.Infof("Control server stopped")
}
