package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventTradeExecuted Event = "trade.executed"
	EventOrderFailed   Event = "order.failed"
	EventCycleComplete Event = "cycle.complete"
	EventAlert         Event = "alert"
)

// TradePayload accompanies EventTradeExecuted.
type TradePayload struct {
	Symbol   string  `json:"symbol"`
	Event    string  `json:"event"` // entry or exit
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	PnL      float64 `json:"pnl"`
	PnLPct   float64 `json:"pnl_pct"`
	Strategy string  `json:"strategy"`
}

// AlertPayload accompanies EventAlert and EventOrderFailed.
type AlertPayload struct {
	Message  string `json:"message"`
	Severity string `json:"severity"` // info, warning, critical
}

// CyclePayload accompanies EventCycleComplete.
type CyclePayload struct {
	Cycle      int64 `json:"cycle"`
	Processed  int   `json:"processed"`
	Errors     int   `json:"errors"`
	OpenCount  int   `json:"open_count"`
	DurationMs int64 `json:"duration_ms"`
}
