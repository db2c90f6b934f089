package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
	"github.com/core-tools/hsu-bot/pkg/processstate"
)

const DefaultAppName = "hsu-bot"

// ProcessFileConfig holds configuration for the bot's PID file
type ProcessFileConfig struct {
	// Base directory for PID files, the runtime directory of the user if empty
	BaseDirectory string

	// Application name for subdirectory creation
	AppName string

	// Create subdirectory for the app
	UseSubdirectory bool
}

type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}

	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

// GeneratePIDFilePath generates the PID file path for the given process name
func (m *ProcessFileManager) GeneratePIDFilePath(name string) string {
	baseDir := m.getBaseDirectory()

	if m.config.UseSubdirectory {
		baseDir = filepath.Join(baseDir, m.config.AppName)
	}

	return filepath.Join(baseDir, name+".pid")
}

// WritePIDFile writes pid to the PID file of name and returns its path
func (m *ProcessFileManager) WritePIDFile(name string, pid int) (string, error) {
	pidFilePath := m.GeneratePIDFilePath(name)
	m.logger.Debugf("Writing PID file, name: %s, pid: %d, path: %s", name, pid, pidFilePath)

	if err := ValidatePIDFileDirectory(pidFilePath); err != nil {
		m.logger.Errorf("PID file directory validation failed, name: %s, path: %s, error: %v", name, pidFilePath, err)
		return "", errors.NewIOError("PID file directory validation failed", err).WithContext("pid_file", pidFilePath)
	}

	pidContent := fmt.Sprintf("%d\n", pid)
	if err := os.WriteFile(pidFilePath, []byte(pidContent), 0644); err != nil {
		m.logger.Errorf("Failed to write PID file, name: %s, pid: %d, path: %s, error: %v", name, pid, pidFilePath, err)
		return "", errors.NewIOError("failed to write PID file", err).WithContext("pid_file", pidFilePath).WithContext("pid", pid)
	}

	m.logger.Infof("PID file written, name: %s, pid: %d, path: %s", name, pid, pidFilePath)
	return pidFilePath, nil
}

// ReadPIDFile reads the PID stored for name
func (m *ProcessFileManager) ReadPIDFile(name string) (int, error) {
	pidFilePath := m.GeneratePIDFilePath(name)

	content, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", pidFilePath)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID in PID file", err).WithContext("pid_file", pidFilePath).WithContext("content", pidStr)
	}

	return pid, nil
}

// RunningPID returns the PID recorded for name when that process is still
// alive and is not the current process
func (m *ProcessFileManager) RunningPID(name string) (int, bool) {
	pid, err := m.ReadPIDFile(name)
	if err != nil {
		return 0, false
	}
	if pid == os.Getpid() {
		return 0, false
	}

	running, err := processstate.IsProcessRunning(pid)
	if err != nil {
		m.logger.Debugf("Failed to probe recorded process, name: %s, pid: %d, error: %v", name, pid, err)
		return 0, false
	}
	return pid, running
}

// RemovePIDFile deletes the PID file of name; a missing file is not an error
func (m *ProcessFileManager) RemovePIDFile(name string) error {
	pidFilePath := m.GeneratePIDFilePath(name)

	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		m.logger.Warnf("Failed to remove PID file, path: %s, error: %v", pidFilePath, err)
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", pidFilePath)
	}

	m.logger.Debugf("PID file removed, path: %s", pidFilePath)
	return nil
}

func (m *ProcessFileManager) getBaseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir
	}
	return os.TempDir()
}

// ValidatePIDFileDirectory validates that the PID file directory exists and is writable
func ValidatePIDFileDirectory(pidFilePath string) error {
	dir := filepath.Dir(pidFilePath)

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError("failed to access PID file directory", err).WithContext("directory", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("failed to create PID file directory", err).WithContext("directory", dir)
		}
	} else if !info.IsDir() {
		return errors.NewValidationError("PID file path is not a directory", nil).WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return errors.NewPermissionError("PID file directory is not writable", err).WithContext("directory", dir)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
