package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks loop-level counters and cycle latency for the status API.
type Metrics struct {
	CycleLatency *LatencyHistogram

	cyclesCompleted uint64
	ordersExecuted  uint64
	signalsFired    uint64
	errorsCount     uint64
}

func NewMetrics() *Metrics {
	return &Metrics{CycleLatency: NewLatencyHistogram(1000)}
}

// LatencyHistogram tracks latency samples over a sliding window with
// lazily recomputed stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when the
// samples changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

func (m *Metrics) IncrementCycles() {
	atomic.AddUint64(&m.cyclesCompleted, 1)
}

func (m *Metrics) IncrementOrders() {
	atomic.AddUint64(&m.ordersExecuted, 1)
}

func (m *Metrics) IncrementSignals() {
	atomic.AddUint64(&m.signalsFired, 1)
}

func (m *Metrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time view served by the status API.
type MetricsSnapshot struct {
	CycleLatency    LatencyStats `json:"cycle_latency"`
	CyclesCompleted uint64       `json:"cycles_completed"`
	OrdersExecuted  uint64       `json:"orders_executed"`
	SignalsFired    uint64       `json:"signals_fired"`
	ErrorsCount     uint64       `json:"errors_count"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		CycleLatency:    m.CycleLatency.Stats(),
		CyclesCompleted: atomic.LoadUint64(&m.cyclesCompleted),
		OrdersExecuted:  atomic.LoadUint64(&m.ordersExecuted),
		SignalsFired:    atomic.LoadUint64(&m.signalsFired),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Timestamp:       time.Now(),
	}
}

// Timer measures one operation and records it to a histogram.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records elapsed time to the histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
