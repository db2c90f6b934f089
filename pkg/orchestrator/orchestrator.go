package orchestrator

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/core-tools/hsu-bot/pkg/client"
	"github.com/core-tools/hsu-bot/pkg/control"
	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/health"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/plugins"
	"github.com/core-tools/hsu-bot/pkg/processfile"
	"github.com/core-tools/hsu-bot/pkg/supervisor"

	corelogging "github.com/core-tools/hsu-core/pkg/logging"
)

// Orchestrator brings up the health responder, the client and the plugins,
// keeps the process alive until interrupted and tears everything down.
type Orchestrator struct {
	config        *Config
	registry      *plugins.Registry
	client        client.Client
	logger        logging.Logger
	coreLogger    corelogging.Logger
	state         *StateMachine
	responder     *health.Responder
	supervisor    *supervisor.Supervisor
	healthHandler *control.HealthHandler
	controlServer *control.Server
	processFiles  *processfile.ProcessFileManager
	pidWritten    bool
	outcomes      []supervisor.LaunchOutcome
	mutex         sync.Mutex
}

func NewOrchestrator(config *Config, registry *plugins.Registry, botClient client.Client, coreLogger corelogging.Logger, logger logging.Logger) (*Orchestrator, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, errors.NewValidationError("plugin registry cannot be nil", nil)
	}
	if botClient == nil {
		return nil, errors.NewValidationError("client cannot be nil", nil)
	}

	healthHandler := control.NewHealthHandler(logging.WithPrefix(logger, "control , "))

	o := &Orchestrator{
		config:        config,
		registry:      registry,
		client:        botClient,
		logger:        logger,
		coreLogger:    coreLogger,
		state:         NewStateMachine(logger),
		healthHandler: healthHandler,
		responder: health.NewResponder(health.ResponderOptions{
			Host: config.Health.Host,
			Port: config.Health.Port,
		}, logging.WithPrefix(logger, "health , ")),
		supervisor: supervisor.NewSupervisor(supervisor.SupervisorOptions{
			Observer: healthHandler.SetPluginRunning,
		}, logger),
	}

	if config.Bot.PIDFileEnabled() {
		o.processFiles = processfile.NewProcessFileManager(processfile.ProcessFileConfig{
			BaseDirectory:   config.Bot.PIDDirectory,
			AppName:         config.Bot.Name,
			UseSubdirectory: config.Bot.PIDSubdirectory,
		}, logger)
	}

	return o, nil
}

// Run blocks until ctx is done or startup fails. Cancelling ctx is a clean
// shutdown and returns nil; only a client startup failure is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.state.Transition(StateStartingHealth); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		o.shutdown()
	}()

	summary := GetConfigSummary(o.config)
	o.logger.Infof("Bot starting, config: %+v", summary)

	o.writePIDFile()
	o.startHealth()
	o.startControl(runCtx)

	if err := o.state.Transition(StateStartingClientAndPlugins); err != nil {
		return err
	}

	var err error
	switch o.config.Bot.StartupMode {
	case StartupModeConcurrent:
		err = o.startConcurrently(runCtx)
	default:
		err = o.startSequentially(runCtx)
	}
	if err != nil {
		o.logger.Errorf("Bot startup failed: %v", err)
		return err
	}

	if runCtx.Err() != nil {
		o.logger.Infof("Bot interrupted during startup")
		return nil
	}

	if err := o.state.Transition(StateRunning); err != nil {
		return err
	}
	o.healthHandler.SetServing(true)

	o.logger.Infof("Bot is running")
	<-runCtx.Done()
	o.logger.Infof("Bot received shutdown request")

	return nil
}

func (o *Orchestrator) startSequentially(ctx context.Context) error {
	if err := o.startClient(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	o.launchPlugins(ctx)
	return nil
}

func (o *Orchestrator) startConcurrently(ctx context.Context) error {
	clientErr := make(chan error, 1)
	go func() {
		clientErr <- o.startClient(ctx)
	}()

	o.launchPlugins(ctx)

	return <-clientErr
}

// startClient returns nil without waiting further when ctx is done first
func (o *Orchestrator) startClient(ctx context.Context) error {
	o.logger.Infof("Starting client...")

	result := make(chan error, 1)
	go func() {
		result <- o.client.Start(ctx)
	}()

	select {
	case err := <-result:
		if err != nil && ctx.Err() == nil {
			return errors.NewInternalError("client failed to start", err)
		}
		if err == nil {
			o.logger.Infof("Client started")
		}
		return nil
	case <-ctx.Done():
		o.logger.Warnf("Client startup interrupted")
		return nil
	}
}

func (o *Orchestrator) launchPlugins(ctx context.Context) {
	units, err := plugins.Discover(o.config.Plugins.Directory, o.registry, o.logger)
	if err != nil {
		o.logger.Warnf("Plugin discovery: %v", err)
	}

	outcomes := o.supervisor.Launch(ctx, units)

	o.mutex.Lock()
	o.outcomes = outcomes
	o.mutex.Unlock()

	counts := supervisor.CountByStatus(outcomes)
	o.logger.Infof("Plugins launched, total: %d, started: %d, missing_entry_point: %d, import_failed: %d",
		len(outcomes), counts[supervisor.StatusStarted], counts[supervisor.StatusMissingEntryPoint], counts[supervisor.StatusImportFailed])
}

func (o *Orchestrator) startHealth() {
	if err := o.responder.Start(); err != nil {
		// The bot keeps running without liveness probes
		o.logger.Errorf("Health responder unavailable, continuing without it: %v", err)
	}
}

func (o *Orchestrator) startControl(ctx context.Context) {
	if o.config.Control.Port == 0 {
		o.logger.Debugf("Control server disabled")
		return
	}

	server, err := control.NewServer(control.ServerOptions{Port: o.config.Control.Port}, o.healthHandler, o.coreLogger, o.logger)
	if err != nil {
		o.logger.Errorf("Control server unavailable, continuing without it: %v", err)
		return
	}

	o.controlServer = server
	server.Start(ctx)
}

func (o *Orchestrator) writePIDFile() {
	if o.processFiles == nil {
		return
	}

	if pid, running := o.processFiles.RunningPID(o.config.Bot.Name); running {
		o.logger.Warnf("Another instance owns the PID file, pid: %d, continuing without PID file", pid)
		return
	}

	if _, err := o.processFiles.WritePIDFile(o.config.Bot.Name, os.Getpid()); err != nil {
		o.logger.Warnf("Continuing without PID file: %v", err)
		return
	}
	o.pidWritten = true
}

func (o *Orchestrator) shutdown() {
	if err := o.state.Transition(StateShuttingDown); err != nil {
		o.logger.Errorf("Shutdown: %v", err)
	}
	o.healthHandler.SetServing(false)

	o.logger.Infof("Shutting down, timeout: %v", o.config.Bot.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), o.config.Bot.ShutdownTimeout)
	defer cancel()

	collection := errors.NewErrorCollection()

	collection.Add(o.supervisor.Stop(ctx))
	collection.Add(o.responder.Shutdown(ctx))

	if o.controlServer != nil {
		o.controlServer.Shutdown(ctx)
	} else {
		o.healthHandler.Shutdown()
	}

	if o.pidWritten {
		collection.Add(o.processFiles.RemovePIDFile(o.config.Bot.Name))
	}

	if collection.HasErrors() {
		o.logger.Warnf("Shutdown finished with errors: %v", collection)
	}

	if err := o.state.Transition(StateTerminated); err != nil {
		o.logger.Errorf("Shutdown: %v", err)
	}

	o.logger.Infof("Bot terminated")
}

func (o *Orchestrator) State() State {
	return o.state.Current()
}

// StateHistory returns every transition made so far
func (o *Orchestrator) StateHistory() []StateTransition {
	return o.state.History()
}

// Outcomes returns the launch outcome of every discovered plugin
func (o *Orchestrator) Outcomes() []supervisor.LaunchOutcome {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	outcomes := make([]supervisor.LaunchOutcome, len(o.outcomes))
	copy(outcomes, o.outcomes)
	return outcomes
}

// Tasks returns the supervised plugin tasks
func (o *Orchestrator) Tasks() []*supervisor.Task {
	return o.supervisor.Tasks()
}

// HealthAddr returns the responder address, or nil when it is not listening
func (o *Orchestrator) HealthAddr() net.Addr {
	if !o.responder.Listening() {
		return nil
	}
	return o.responder.Addr()
}

// HealthHandler exposes the published gRPC health statuses
func (o *Orchestrator) HealthHandler() *control.HealthHandler {
	return o.healthHandler
}
