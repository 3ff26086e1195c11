package db

import "time"

// Position statuses. A row exists in the positions table only while HOLD;
// closing deletes the row, so the primary key enforces the one-open-position
// invariant at the storage level.
const (
	StatusHold   = "HOLD"
	StatusClosed = "CLOSED"
)

// Trade-log event kinds.
const (
	EventEntry = "entry"
	EventExit  = "exit"
)

// Position is the durable record of an open holding for one symbol.
type Position struct {
	Symbol     string
	EntryPrice float64
	Amount     float64
	EntryTime  time.Time
	Status     string
	Strategy   string
}

// Order is a submitted (or simulated) order row.
type Order struct {
	ID        string
	Symbol    string
	Side      string
	Qty       float64
	Price     float64
	Status    string
	Mode      string
	CreatedAt time.Time
}

// TradeLog is an immutable record of an executed entry or exit.
type TradeLog struct {
	ID        string
	Symbol    string
	Event     string
	Price     float64
	Amount    float64
	PnL       float64
	PnLPct    float64
	Strategy  string
	Detail    string
	CreatedAt time.Time
}
