package tradelog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coinhunter/internal/events"
	"coinhunter/pkg/db"
	"coinhunter/pkg/logger"
)

// DefaultRetention caps trade-log rows kept per instrument.
const DefaultRetention = 100

// Recorder appends immutable trade-log entries, prunes per-instrument
// history beyond the retention cap, and publishes each execution on the
// event bus for the status stream and notifier.
type Recorder struct {
	db     *db.Database
	bus    *events.Bus
	retain int
}

// NewRecorder builds a recorder. A retain of <=0 uses DefaultRetention;
// the bus may be nil.
func NewRecorder(database *db.Database, bus *events.Bus, retain int) *Recorder {
	if retain <= 0 {
		retain = DefaultRetention
	}
	return &Recorder{db: database, bus: bus, retain: retain}
}

// Entry records an executed position entry.
func (r *Recorder) Entry(ctx context.Context, symbol string, price, amount float64, strategyName, detail string) error {
	return r.record(ctx, db.TradeLog{
		Symbol:   symbol,
		Event:    db.EventEntry,
		Price:    price,
		Amount:   amount,
		Strategy: strategyName,
		Detail:   detail,
	})
}

// Exit records an executed position exit with its realized PnL.
func (r *Recorder) Exit(ctx context.Context, symbol string, price, amount, pnl, pnlPct float64, strategyName, detail string) error {
	return r.record(ctx, db.TradeLog{
		Symbol:   symbol,
		Event:    db.EventExit,
		Price:    price,
		Amount:   amount,
		PnL:      pnl,
		PnLPct:   pnlPct,
		Strategy: strategyName,
		Detail:   detail,
	})
}

// Recent returns the newest entries for a symbol (all symbols when empty).
func (r *Recorder) Recent(ctx context.Context, symbol string, limit int) ([]db.TradeLog, error) {
	return r.db.ListTradeLogs(ctx, symbol, limit)
}

func (r *Recorder) record(ctx context.Context, t db.TradeLog) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	if err := r.db.CreateTradeLog(ctx, t, r.retain); err != nil {
		return err
	}

	logger.Info("trade logged",
		zap.String("symbol", t.Symbol),
		zap.String("event", t.Event),
		zap.Float64("price", t.Price),
		zap.Float64("amount", t.Amount),
		zap.Float64("pnl", t.PnL),
		zap.String("strategy", t.Strategy),
		zap.String("detail", t.Detail))

	if r.bus != nil {
		r.bus.Publish(events.EventTradeExecuted, events.TradePayload{
			Symbol:   t.Symbol,
			Event:    t.Event,
			Price:    t.Price,
			Amount:   t.Amount,
			PnL:      t.PnL,
			PnLPct:   t.PnLPct,
			Strategy: t.Strategy,
		})
	}
	return nil
}
