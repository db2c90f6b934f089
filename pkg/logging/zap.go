package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapConfig defines the zap backend configuration
type ZapConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "console"
	Output string `yaml:"output"` // "stdout", "stderr", file path
	Caller bool   `yaml:"caller"`
}

// DefaultZapConfig returns the configuration used when nothing is configured
func DefaultZapConfig() ZapConfig {
	return ZapConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
}

// ZapLogger implements Logger on top of a zap sugared logger
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	close  func()
}

// NewZapLogger creates a zap backed Logger from configuration
func NewZapLogger(config ZapConfig) (*ZapLogger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	closeFunc := func() {}
	var writeSyncer zapcore.WriteSyncer
	switch config.Output {
	case "stdout", "":
		writeSyncer = zapcore.Lock(os.Stdout)
	case "stderr":
		writeSyncer = zapcore.Lock(os.Stderr)
	default:
		writeSyncer, closeFunc, err = zap.Open(config.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output %s: %w", config.Output, err)
		}
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if config.Caller {
		// Skip the Logger indirection frames
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	zapLogger := NewZapLoggerFromZap(zap.New(zapcore.NewCore(encoder, writeSyncer, level), opts...))
	zapLogger.close = closeFunc
	return zapLogger, nil
}

// NewZapLoggerFromZap wraps an existing zap logger
func NewZapLoggerFromZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
		close:  func() {},
	}
}

func (z *ZapLogger) LogLevelf(level int, format string, args ...interface{}) {
	switch level {
	case LogLevelDebug:
		z.sugar.Debugf(format, args...)
	case LogLevelWarn:
		z.sugar.Warnf(format, args...)
	case LogLevelError:
		z.sugar.Errorf(format, args...)
	default:
		z.sugar.Infof(format, args...)
	}
}

func (z *ZapLogger) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(format, args...)
}

func (z *ZapLogger) Infof(format string, args ...interface{}) {
	z.sugar.Infof(format, args...)
}

func (z *ZapLogger) Warnf(format string, args ...interface{}) {
	z.sugar.Warnf(format, args...)
}

func (z *ZapLogger) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(format, args...)
}

// Funcs exposes the logger as LogFuncs for libraries with their own logger type
func (z *ZapLogger) Funcs() LogFuncs {
	return LogFuncs{
		Debugf: z.Debugf,
		Infof:  z.Infof,
		Warnf:  z.Warnf,
		Errorf: z.Errorf,
	}
}

// Sync flushes buffered entries and releases the output
func (z *ZapLogger) Sync() error {
	err := z.logger.Sync()
	z.close()
	return err
}

// ParseLevel is zapcore.ParseLevel, which zap v1.20.0 does not have yet.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", levelStr)
	}
}
