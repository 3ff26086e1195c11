package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// ErrAlreadyRunning means another live instance holds the run lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// RunLock is a pid file guarding against concurrent instances.
type RunLock struct {
	path string
}

// Acquire writes the pid file at path. If the file exists and its pid
// belongs to a live process, acquisition fails. A stale file left by a
// dead process is reclaimed.
func Acquire(path string) (*RunLock, error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		if perr == nil && pid > 0 && processAlive(pid) {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		logger.Warn("reclaiming stale run lock", zap.String("path", path))
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("write run lock: %w", err)
	}
	return &RunLock{path: path}, nil
}

// Release removes the pid file.
func (l *RunLock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove run lock", zap.Error(err))
	}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without sending anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
