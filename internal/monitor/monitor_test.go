package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"coinhunter/internal/events"
	"coinhunter/internal/notify"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
	severity []string
}

func (c *captureNotifier) Notify(message, severity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	c.severity = append(c.severity, severity)
}

func (c *captureNotifier) wait(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.messages)
		c.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notifications", n)
}

func TestMonitorForwardsAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	sink := &captureNotifier{}
	(&Monitor{Bus: bus, Notifier: sink}).Start(ctx)

	// Give the subscriber goroutine a moment to attach.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.EventAlert, events.AlertPayload{
		Message:  "capital below minimum",
		Severity: notify.SeverityWarning,
	})

	sink.wait(t, 1)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.messages[0] != "capital below minimum" {
		t.Errorf("message = %q", sink.messages[0])
	}
	if sink.severity[0] != notify.SeverityWarning {
		t.Errorf("severity = %q", sink.severity[0])
	}
}

func TestMonitorForwardsOrderFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	sink := &captureNotifier{}
	(&Monitor{Bus: bus, Notifier: sink}).Start(ctx)

	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.EventOrderFailed, events.TradePayload{
		Symbol: "KRW-BTC",
		Event:  "entry",
		Price:  100,
	})

	sink.wait(t, 1)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.severity[0] != notify.SeverityCritical {
		t.Errorf("order failures should be critical, got %q", sink.severity[0])
	}
}

func TestMonitorForwardsTradeExecutions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	sink := &captureNotifier{}
	(&Monitor{Bus: bus, Notifier: sink}).Start(ctx)

	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.EventTradeExecuted, events.TradePayload{
		Symbol: "KRW-BTC",
		Event:  "exit",
		Price:  120,
		PnL:    100,
		PnLPct: 20,
	})

	sink.wait(t, 1)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.severity[0] != notify.SeverityInfo {
		t.Errorf("trade notifications should be info, got %q", sink.severity[0])
	}
	if !strings.Contains(sink.messages[0], "KRW-BTC") {
		t.Errorf("message missing symbol: %q", sink.messages[0])
	}
}

func TestLatencyHistogramSlidingWindow(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{10, 20, 30, 40} {
		h.Record(v)
	}
	st := h.Stats()
	if st.Count != 3 {
		t.Fatalf("count = %d, want 3", st.Count)
	}
	if st.Min != 20 || st.Max != 40 {
		t.Fatalf("min/max = %v/%v, want 20/40", st.Min, st.Max)
	}
}

func TestMetricsSnapshotCounters(t *testing.T) {
	m := NewMetrics()
	m.IncrementCycles()
	m.IncrementCycles()
	m.IncrementOrders()
	m.IncrementErrors()

	snap := m.GetSnapshot()
	if snap.CyclesCompleted != 2 || snap.OrdersExecuted != 1 || snap.ErrorsCount != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
