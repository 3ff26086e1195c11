package monitor

import (
	"context"
	"fmt"

	"coinhunter/internal/events"
	"coinhunter/internal/notify"
	"coinhunter/pkg/logger"
)

// Monitor watches the event bus and forwards alerts and failed orders
// to the notifier.
type Monitor struct {
	Bus      *events.Bus
	Notifier notify.Notifier
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Notifier == nil {
		logger.Warn("monitor not fully configured; skipping")
		return
	}
	alerts, unsubAlerts := m.Bus.Subscribe(events.EventAlert, 50)
	failures, unsubFailures := m.Bus.Subscribe(events.EventOrderFailed, 50)
	trades, unsubTrades := m.Bus.Subscribe(events.EventTradeExecuted, 50)
	go func() {
		defer unsubAlerts()
		defer unsubFailures()
		defer unsubTrades()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-alerts:
				if !ok {
					return
				}
				m.forwardAlert(msg)
			case msg, ok := <-failures:
				if !ok {
					return
				}
				m.forwardFailure(msg)
			case msg, ok := <-trades:
				if !ok {
					return
				}
				m.forwardTrade(msg)
			}
		}
	}()
}

func (m *Monitor) forwardAlert(msg any) {
	switch t := msg.(type) {
	case events.AlertPayload:
		m.Notifier.Notify(t.Message, t.Severity)
	case string:
		m.Notifier.Notify(t, notify.SeverityWarning)
	default:
		m.Notifier.Notify(fmt.Sprintf("%v", t), notify.SeverityWarning)
	}
}

func (m *Monitor) forwardTrade(msg any) {
	t, ok := msg.(events.TradePayload)
	if !ok {
		return
	}
	switch t.Event {
	case "exit":
		m.Notifier.Notify(fmt.Sprintf("exit %s at %.2f, pnl %.2f (%.2f%%)",
			t.Symbol, t.Price, t.PnL, t.PnLPct), notify.SeverityInfo)
	default:
		m.Notifier.Notify(fmt.Sprintf("entry %s at %.2f, amount %.6f [%s]",
			t.Symbol, t.Price, t.Amount, t.Strategy), notify.SeverityInfo)
	}
}

func (m *Monitor) forwardFailure(msg any) {
	switch t := msg.(type) {
	case events.TradePayload:
		m.Notifier.Notify(fmt.Sprintf("order failed for %s (%s at %.2f)",
			t.Symbol, t.Event, t.Price), notify.SeverityCritical)
	default:
		m.Notifier.Notify(fmt.Sprintf("order failed: %v", t), notify.SeverityCritical)
	}
}
