package orchestrator

import (
	"os"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/health"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBotName          = "hsu-bot"
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultPluginsDirectory = "plugins"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// StartupMode selects how the client and the plugins are brought up
type StartupMode string

const (
	// StartupModeSequential starts the client, awaits it, then launches plugins
	StartupModeSequential StartupMode = "sequential"

	// StartupModeConcurrent starts the client and launches plugins together
	StartupModeConcurrent StartupMode = "concurrent"
)

// Config represents the top-level configuration file structure
type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Health  HealthConfig  `yaml:"health"`
	Control ControlConfig `yaml:"control"`
	Plugins PluginsConfig `yaml:"plugins"`
	Logging LoggingConfig `yaml:"logging"`
}

type BotConfig struct {
	Name            string        `yaml:"name,omitempty"`
	StartupMode     StartupMode   `yaml:"startup_mode,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
	PIDFile         bool          `yaml:"pid_file,omitempty"`
	PIDDirectory    string        `yaml:"pid_directory,omitempty"` // Implies pid_file; empty means the user runtime directory
	PIDSubdirectory bool          `yaml:"pid_subdirectory,omitempty"`
}

// PIDFileEnabled reports whether the bot writes a PID file
func (c BotConfig) PIDFileEnabled() bool {
	return c.PIDFile || c.PIDDirectory != ""
}

type HealthConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

type ControlConfig struct {
	Port int `yaml:"port,omitempty"` // 0 disables the control server
}

type PluginsConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// ConfigOverrides holds command line values that win over the file; zero
// values leave the file value untouched
type ConfigOverrides struct {
	HealthPort       int
	ControlPort      int
	PluginsDirectory string
	StartupMode      string
	LogLevel         string
	LogFormat        string
	PIDFile          bool
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads bot configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// LoadConfig loads the optional configuration file, applies overrides and validates the result
func LoadConfig(configFile string, overrides ConfigOverrides) (*Config, error) {
	config := DefaultConfig()
	if configFile != "" {
		var err error
		config, err = LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
	}

	overrides.Apply(config)

	if err := ValidateConfig(config); err != nil {
		return nil, errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}

	return config, nil
}

// Apply copies every non-zero override into config
func (o ConfigOverrides) Apply(config *Config) {
	if o.HealthPort != 0 {
		config.Health.Port = o.HealthPort
	}
	if o.ControlPort != 0 {
		config.Control.Port = o.ControlPort
	}
	if o.PluginsDirectory != "" {
		config.Plugins.Directory = o.PluginsDirectory
	}
	if o.StartupMode != "" {
		config.Bot.StartupMode = StartupMode(o.StartupMode)
	}
	if o.LogLevel != "" {
		config.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		config.Logging.Format = o.LogFormat
	}
	if o.PIDFile {
		config.Bot.PIDFile = true
	}
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateBotConfig(config.Bot); err != nil {
		return errors.NewValidationError("invalid bot configuration", err)
	}

	if err := ValidateListenPort(config.Health.Port); err != nil {
		return errors.NewValidationError("invalid health configuration", err)
	}

	if config.Control.Port != 0 {
		if err := ValidatePort(config.Control.Port); err != nil {
			return errors.NewValidationError("invalid control configuration", err)
		}
	}

	if config.Plugins.Directory == "" {
		return errors.NewValidationError("plugins directory cannot be empty", nil)
	}

	if err := validateLoggingConfig(config.Logging); err != nil {
		return errors.NewValidationError("invalid logging configuration", err)
	}

	return nil
}

// ValidateConfigFile validates a configuration file without running the bot
func ValidateConfigFile(configFile string) error {
	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}

	if err := ValidateConfig(config); err != nil {
		return errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}

	return nil
}

func setConfigDefaults(config *Config) {
	if config.Bot.Name == "" {
		config.Bot.Name = DefaultBotName
	}
	if config.Bot.StartupMode == "" {
		config.Bot.StartupMode = StartupModeSequential
	}
	if config.Bot.ShutdownTimeout == 0 {
		config.Bot.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.Health.Port == 0 {
		config.Health.Port = health.DefaultPort
	}
	if config.Plugins.Directory == "" {
		config.Plugins.Directory = DefaultPluginsDirectory
	}
	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = DefaultLogFormat
	}
}

// ConfigSummary provides a high-level overview of configuration
type ConfigSummary struct {
	Name             string      `json:"name"`
	StartupMode      StartupMode `json:"startup_mode"`
	HealthAddress    string      `json:"health_address"`
	ControlEnabled   bool        `json:"control_enabled"`
	PluginsDirectory string      `json:"plugins_directory"`
	PIDFileEnabled   bool        `json:"pid_file_enabled"`
}

// GetConfigSummary returns a human-readable summary of the configuration
func GetConfigSummary(config *Config) ConfigSummary {
	return ConfigSummary{
		Name:             config.Bot.Name,
		StartupMode:      config.Bot.StartupMode,
		HealthAddress:    joinHostPort(config.Health.Host, config.Health.Port),
		ControlEnabled:   config.Control.Port != 0,
		PluginsDirectory: config.Plugins.Directory,
		PIDFileEnabled:   config.Bot.PIDFileEnabled(),
	}
}
