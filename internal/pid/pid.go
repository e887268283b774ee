package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/thermloop/internal/errors"
)

const (
	pidFile = "thermloop.pid"
)

// DefaultPath returns the PID file location in the system temp dir.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to path. It fails if the file names a
// process that is still alive.
func Write(path string) error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
		if err == nil && pid != os.Getpid() && isRunning(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, pid)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove(path string) error {
	errFactory := errors.New()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
