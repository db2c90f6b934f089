package main

import (
	"fmt"
	"os"

	coreLogging "github.com/core-tools/hsu-core/pkg/logging"

	"github.com/core-tools/hsu-bot/pkg/client"
	botLogging "github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/orchestrator"
	"github.com/core-tools/hsu-bot/pkg/plugins"
	"github.com/core-tools/hsu-bot/pkg/plugins/builtin"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config         string `long:"config" short:"c" description:"path to the YAML configuration file"`
	HealthPort     int    `long:"health-port" env:"HEALTH_PORT" description:"port of the HTTP liveness endpoint"`
	ControlPort    int    `long:"control-port" description:"port of the gRPC control server, 0 disables it"`
	PluginsDir     string `long:"plugins-dir" description:"directory holding plugin manifests"`
	Mode           string `long:"mode" choice:"sequential" choice:"concurrent" description:"startup mode"`
	RunDuration    int    `long:"run-duration" description:"stop after this many seconds, 0 runs until interrupted"`
	LogLevel       string `long:"log-level" description:"debug, info, warn or error"`
	LogFormat      string `long:"log-format" choice:"console" choice:"json" description:"log encoding"`
	PIDFile        bool   `long:"pid-file" description:"write a PID file, in the user runtime directory unless bot.pid_directory is set"`
	ValidateConfig bool   `long:"validate-config" description:"validate the configuration and exit"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-server , ", module)
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		return 1
	}

	config, err := orchestrator.LoadConfig(opts.Config, orchestrator.ConfigOverrides{
		HealthPort:       opts.HealthPort,
		ControlPort:      opts.ControlPort,
		PluginsDirectory: opts.PluginsDir,
		StartupMode:      opts.Mode,
		LogLevel:         opts.LogLevel,
		LogFormat:        opts.LogFormat,
		PIDFile:          opts.PIDFile,
	})
	if err != nil {
		fmt.Printf("Configuration failed: %v\n", err)
		return 1
	}

	if opts.ValidateConfig {
		fmt.Printf("Configuration is valid\n")
		return 0
	}

	zapLogger, err := botLogging.NewZapLogger(botLogging.ZapConfig{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		fmt.Printf("Logger creation failed: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()

	zapLogger.Infof("opts: %+v", opts)

	coreLogger := coreLogging.NewLogger(
		logPrefix("hsu-core"), coreLogging.LogFuncs{
			Debugf: zapLogger.Debugf,
			Infof:  zapLogger.Infof,
			Warnf:  zapLogger.Warnf,
			Errorf: zapLogger.Errorf,
		})
	botLogger := botLogging.NewLogger(
		logPrefix("hsu-bot"), zapLogger.Funcs())

	registry := plugins.DefaultRegistry()
	if err := builtin.Register(registry, botLogger); err != nil {
		botLogger.Errorf("Failed to register builtin plugins: %v", err)
		return 1
	}

	botClient := client.NewIdleClient(config.Bot.Name, botLogging.WithPrefix(botLogger, "client , "))

	if err := orchestrator.Run(opts.RunDuration, config, registry, botClient, coreLogger, botLogger); err != nil {
		botLogger.Errorf("Bot failed: %v", err)
		return 1
	}

	return 0
}
