package lifecycle

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunLockBlocksSecondInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer lock.Release()

	if _, err := Acquire(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire: got %v, want ErrAlreadyRunning", err)
	}
}

func TestRunLockReclaimsStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	// A pid that cannot belong to a live process.
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	lock.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed after release, stat err = %v", err)
	}
}

func TestFileStopDetectsFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.flag")
	s := NewFileStop(path)
	defer s.Cleanup()

	if s.Stopped() {
		t.Fatal("stopped before flag exists")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !s.Stopped() {
		t.Fatal("flag file not detected")
	}
	// Sticky even after the flag is removed.
	os.Remove(path)
	if !s.Stopped() {
		t.Fatal("stop should be sticky")
	}
}

func TestFileStopClearsStaleFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.flag")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStop(path)
	if s.Stopped() {
		t.Fatal("stale flag from a previous run should be cleared on startup")
	}
}

func TestHealthWriterSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.json")
	w := NewHealthWriter(path)

	w.Write(HealthStatus{State: "running", Cycle: 7, Processed: 3, Errors: 1, OpenCount: 2})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var st HealthStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	if st.State != "running" || st.Cycle != 7 || st.OpenCount != 2 {
		t.Fatalf("unexpected snapshot: %+v", st)
	}
	if st.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", st.PID, os.Getpid())
	}
	if st.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}
