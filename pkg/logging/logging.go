package logging

const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

// Logger is the printf-style logger every bot component takes
type Logger interface {
	LogLevelf(level int, format string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

type LogLevelFunc func(level int, format string, args ...interface{})
type LogFunc func(format string, args ...interface{})

// LogFuncs connects a Logger to a backend. LogLevelf, when set, receives
// every message; otherwise the per-level func is used and a nil one drops.
type LogFuncs struct {
	LogLevelf LogLevelFunc
	Debugf    LogFunc
	Infof     LogFunc
	Warnf     LogFunc
	Errorf    LogFunc
}

func (f LogFuncs) forLevel(level int) LogFunc {
	switch level {
	case LogLevelDebug:
		return f.Debugf
	case LogLevelInfo:
		return f.Infof
	case LogLevelWarn:
		return f.Warnf
	case LogLevelError:
		return f.Errorf
	}
	return nil
}

type prefixLogger struct {
	prefix string
	funcs  LogFuncs
}

func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &prefixLogger{
		prefix: prefix,
		funcs:  funcs,
	}
}

// WithPrefix returns a logger writing to the same backend as parent with
// prefix added after the parent's own prefix.
func WithPrefix(parent Logger, prefix string) Logger {
	if p, ok := parent.(*prefixLogger); ok {
		return &prefixLogger{prefix: p.prefix + prefix, funcs: p.funcs}
	}
	return NewLogger(prefix, LogFuncs{LogLevelf: parent.LogLevelf})
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &prefixLogger{}
}

func (l *prefixLogger) LogLevelf(level int, format string, args ...interface{}) {
	format = l.prefix + format
	if l.funcs.LogLevelf != nil {
		l.funcs.LogLevelf(level, format, args...)
		return
	}
	if logf := l.funcs.forLevel(level); logf != nil {
		logf(format, args...)
	}
}

func (l *prefixLogger) Debugf(msg string, args ...interface{}) {
	l.LogLevelf(LogLevelDebug, msg, args...)
}

func (l *prefixLogger) Infof(msg string, args ...interface{}) {
	l.LogLevelf(LogLevelInfo, msg, args...)
}

func (l *prefixLogger) Warnf(msg string, args ...interface{}) {
	l.LogLevelf(LogLevelWarn, msg, args...)
}

func (l *prefixLogger) Errorf(msg string, args ...interface{}) {
	l.LogLevelf(LogLevelError, msg, args...)
}
