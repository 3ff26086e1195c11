package lifecycle

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// StopSignal reports whether a shutdown has been requested.
type StopSignal interface {
	Stopped() bool
}

// FileStop treats the presence of a flag file as a stop request, so an
// operator can halt the loop by touching a file. OS interrupt signals
// feed the same switch.
type FileStop struct {
	path string
	sigs chan os.Signal
	hit  bool
}

// NewFileStop watches path and SIGINT/SIGTERM. Any stale flag file from
// a previous run is cleared on startup.
func NewFileStop(path string) *FileStop {
	if err := os.Remove(path); err == nil {
		logger.Warn("cleared stale stop flag", zap.String("path", path))
	}
	s := &FileStop{path: path, sigs: make(chan os.Signal, 1)}
	signal.Notify(s.sigs, syscall.SIGINT, syscall.SIGTERM)
	return s
}

// Stopped returns true once a stop has been requested. The answer is
// sticky: after the first true it stays true.
func (s *FileStop) Stopped() bool {
	if s.hit {
		return true
	}
	select {
	case sig := <-s.sigs:
		logger.Info("received stop signal", zap.String("signal", sig.String()))
		s.hit = true
		return true
	default:
	}
	if _, err := os.Stat(s.path); err == nil {
		logger.Info("stop flag detected", zap.String("path", s.path))
		s.hit = true
		return true
	}
	return false
}

// Cleanup removes the stop flag file if present.
func (s *FileStop) Cleanup() {
	_ = os.Remove(s.path)
}
