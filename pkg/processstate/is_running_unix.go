//go:build !windows

package processstate

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/core-tools/hsu-bot/pkg/errors"
)

// IsProcessRunning reports whether a process with pid exists
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	// FindProcess always succeeds on Unix, signal 0 probes for existence
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, os.ErrProcessDone), stderrors.Is(err, syscall.ESRCH):
		return false, nil
	case stderrors.Is(err, syscall.EPERM):
		// Exists but belongs to another user
		return true, nil
	default:
		return false, errors.NewInternalError("failed to probe process", err).WithContext("pid", pid)
	}
}
