package lifecycle

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// HealthStatus is the snapshot written to the health file each cycle.
type HealthStatus struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	PID       int       `json:"pid"`
	Cycle     int64     `json:"cycle"`
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	OpenCount int       `json:"open_count"`
}

// HealthWriter persists liveness snapshots for external watchdogs.
type HealthWriter struct {
	path string
}

func NewHealthWriter(path string) *HealthWriter {
	return &HealthWriter{path: path}
}

// Write serializes the status to the health file. Write errors are
// logged, not returned; a missing health file must never stop trading.
func (h *HealthWriter) Write(st HealthStatus) {
	st.Timestamp = time.Now().UTC()
	st.PID = os.Getpid()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		logger.Warn("marshal health status", zap.Error(err))
		return
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		logger.Warn("write health file", zap.Error(err))
	}
}
