package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	coreControl "github.com/core-tools/hsu-core/pkg/control"
	coreDomain "github.com/core-tools/hsu-core/pkg/domain"
	coreLogging "github.com/core-tools/hsu-core/pkg/logging"

	botControl "github.com/core-tools/hsu-bot/pkg/control"
	botLogging "github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/monitoring"

	flags "github.com/jessevdk/go-flags"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

type flagOptions struct {
	HealthURL   string        `long:"health-url" default:"http://localhost:8080/health" description:"liveness endpoint to probe"`
	ControlPort int           `long:"control-port" description:"gRPC control port to query, 0 skips the gRPC check"`
	Service     string        `long:"service" description:"gRPC health service, empty for the whole bot or a plugin name"`
	Timeout     time.Duration `long:"timeout" default:"2s" description:"timeout of a single check"`
	Watch       time.Duration `long:"watch" description:"keep probing at this interval until interrupted"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-client , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	logger := sprintfLogging.NewStdSprintfLogger()

	logger.Infof("opts: %+v", opts)

	coreLogger := coreLogging.NewLogger(
		logPrefix("hsu-core"), coreLogging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		})
	botLogger := botLogging.NewLogger(
		logPrefix("hsu-bot"), botLogging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	healthy := probeLiveness(ctx, opts, botLogger)

	if opts.ControlPort != 0 {
		healthy = probeControl(ctx, opts, coreLogger, botLogger) && healthy
	}

	if healthy {
		logger.Infof("Bot is healthy")
		os.Exit(0)
	}
	logger.Errorf("Bot is unhealthy")
	os.Exit(1)
}

func probeLiveness(ctx context.Context, opts flagOptions, logger botLogging.Logger) bool {
	config := monitoring.HealthCheckConfig{
		Type: monitoring.HealthCheckTypeHTTP,
		HTTP: monitoring.HTTPHealthCheckConfig{URL: opts.HealthURL},
		RunOptions: monitoring.HealthCheckRunOptions{
			Interval: opts.Timeout + time.Second,
			Timeout:  opts.Timeout,
		},
	}
	if opts.Watch > opts.Timeout {
		config.RunOptions.Interval = opts.Watch
	}

	if err := monitoring.ValidateHealthCheckConfig(config); err != nil {
		logger.Errorf("Invalid liveness probe: %v", err)
		return false
	}

	monitor := monitoring.NewHealthMonitor(config, "liveness", logger)

	if opts.Watch <= 0 {
		state := monitor.CheckOnce(ctx)
		logger.Infof("Liveness: %s, %s", state.Status, state.Message)
		return state.Status == monitoring.HealthCheckStatusHealthy
	}

	monitor.SetStatusCallback(func(previous, current monitoring.HealthCheckStatus, message string) {
		logger.Infof("Liveness changed: %s -> %s, %s", previous, current, message)
	})
	if err := monitor.Start(ctx); err != nil {
		logger.Errorf("Failed to start liveness watch: %v", err)
		return false
	}

	<-ctx.Done()
	monitor.Stop()

	return monitor.State().Status == monitoring.HealthCheckStatusHealthy
}

func probeControl(ctx context.Context, opts flagOptions, coreLogger coreLogging.Logger, logger botLogging.Logger) bool {
	coreConnectionOptions := coreControl.ConnectionOptions{
		AttachPort: opts.ControlPort,
	}
	coreConnection, err := coreControl.NewConnection(coreConnectionOptions, coreLogger)
	if err != nil {
		logger.Errorf("Failed to create core connection: %v", err)
		return false
	}

	coreClientGateway := coreControl.NewGRPCClientGateway(coreConnection.GRPC(), coreLogger)
	healthGateway := botControl.NewGRPCClientGateway(coreConnection.GRPC(), logger)

	retryPingOptions := coreDomain.RetryPingOptions{
		RetryAttempts: 3,
		RetryInterval: 1 * time.Second,
	}
	err = coreDomain.RetryPing(ctx, coreClientGateway, retryPingOptions, coreLogger)
	if err != nil {
		logger.Errorf("Failed to ping control server: %v", err)
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	response, err := healthGateway.Check(checkCtx, opts.Service)
	if err != nil {
		logger.Errorf("gRPC health check failed: %v", err)
		return false
	}

	rendered, err := protojson.Marshal(response)
	if err != nil {
		logger.Warnf("Failed to render health response: %v", err)
	} else {
		logger.Infof("gRPC health, service: %q, response: %s", opts.Service, rendered)
	}

	return response.Status == healthpb.HealthCheckResponse_SERVING
}
