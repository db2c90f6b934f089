package processfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProcessFileMockLogger is a simple mock implementation of Logger for testing
type ProcessFileMockLogger struct{}

func (m *ProcessFileMockLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (m *ProcessFileMockLogger) Debugf(format string, args ...interface{})               {}
func (m *ProcessFileMockLogger) Infof(format string, args ...interface{})                {}
func (m *ProcessFileMockLogger) Warnf(format string, args ...interface{})                {}
func (m *ProcessFileMockLogger) Errorf(format string, args ...interface{})               {}

func TestNewProcessFileManager_WithDefaults(t *testing.T) {
	manager := NewProcessFileManager(ProcessFileConfig{}, &ProcessFileMockLogger{})

	assert.Equal(t, DefaultAppName, manager.config.AppName)
	assert.Contains(t, manager.GeneratePIDFilePath("bot"), "bot.pid")
}

func TestGeneratePIDFilePath(t *testing.T) {
	base := t.TempDir()

	flat := NewProcessFileManager(ProcessFileConfig{BaseDirectory: base}, &ProcessFileMockLogger{})
	assert.Equal(t, filepath.Join(base, "bot.pid"), flat.GeneratePIDFilePath("bot"))

	nested := NewProcessFileManager(ProcessFileConfig{
		BaseDirectory:   base,
		AppName:         "test-app",
		UseSubdirectory: true,
	}, &ProcessFileMockLogger{})
	assert.Equal(t, filepath.Join(base, "test-app", "bot.pid"), nested.GeneratePIDFilePath("bot"))
}

func TestWriteReadRemovePIDFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "created", "on", "demand")
	manager := NewProcessFileManager(ProcessFileConfig{BaseDirectory: base}, &ProcessFileMockLogger{})

	path, err := manager.WritePIDFile("bot", 4242)
	require.NoError(t, err)
	assert.FileExists(t, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(content))

	pid, err := manager.ReadPIDFile("bot")
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, manager.RemovePIDFile("bot"))
	assert.NoFileExists(t, path)

	// Removing twice is fine
	assert.NoError(t, manager.RemovePIDFile("bot"))
}

func TestReadPIDFile_Invalid(t *testing.T) {
	base := t.TempDir()
	manager := NewProcessFileManager(ProcessFileConfig{BaseDirectory: base}, &ProcessFileMockLogger{})

	_, err := manager.ReadPIDFile("absent")
	assert.True(t, errors.IsIOError(err))

	require.NoError(t, os.WriteFile(filepath.Join(base, "garbage.pid"), []byte("not-a-pid"), 0644))
	_, err = manager.ReadPIDFile("garbage")
	assert.True(t, errors.IsValidationError(err))
}

func TestValidatePIDFileDirectory_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := ValidatePIDFileDirectory(filepath.Join(file, "bot.pid"))
	assert.True(t, errors.IsValidationError(err))
}

func TestRunningPID(t *testing.T) {
	base := t.TempDir()
	manager := NewProcessFileManager(ProcessFileConfig{BaseDirectory: base}, &ProcessFileMockLogger{})

	_, running := manager.RunningPID("bot")
	assert.False(t, running)

	// Our own PID is never reported as another instance
	_, err := manager.WritePIDFile("bot", os.Getpid())
	require.NoError(t, err)
	_, running = manager.RunningPID("bot")
	assert.False(t, running)

	// The parent process of the test binary is alive
	_, err = manager.WritePIDFile("bot", os.Getppid())
	require.NoError(t, err)
	pid, running := manager.RunningPID("bot")
	assert.True(t, running)
	assert.Equal(t, os.Getppid(), pid)
}
