package control

import (
	"context"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthGateway interface {
	Check(ctx context.Context, service string) (*healthpb.HealthCheckResponse, error)
}

func NewGRPCClientGateway(grpcClientConnection grpc.ClientConnInterface, logger logging.Logger) HealthGateway {
	grpcClient := healthpb.NewHealthClient(grpcClientConnection)
	return &grpcClientGateway{
		grpcClient: grpcClient,
		logger:     logger,
	}
}

type grpcClientGateway struct {
	grpcClient healthpb.HealthClient
	logger     logging.Logger
}

func (gw *grpcClientGateway) Check(ctx context.Context, service string) (*healthpb.HealthCheckResponse, error) {
	response, err := gw.grpcClient.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		gw.logger.Errorf("Health check client gateway, service: %q, error: %v", service, err)
		return nil, errors.NewHealthCheckError("gRPC health check failed", err).WithContext("service", service)
	}
	gw.logger.Debugf("Health check client gateway done, service: %q, status: %s", service, response.Status)
	return response, nil
}
