// Package scheduler drives the polling trade loop: one cycle per poll
// interval, one decision per instrument per cycle.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"coinhunter/internal/allocation"
	"coinhunter/internal/events"
	"coinhunter/internal/exchange"
	"coinhunter/internal/lifecycle"
	"coinhunter/internal/monitor"
	"coinhunter/internal/notify"
	"coinhunter/internal/position"
	"coinhunter/internal/strategy"
	"coinhunter/internal/tradelog"
	"coinhunter/pkg/config"
	"coinhunter/pkg/db"
	"coinhunter/pkg/logger"
)

// Scheduler owns the trading loop. All trading state flows through it
// from a single goroutine; the components it calls guard their own state.
type Scheduler struct {
	Instruments *config.Instruments
	Strategies  map[string]strategy.Strategy
	Store       *position.Store
	Gateway     exchange.Gateway
	Trades      *tradelog.Recorder
	Bus         *events.Bus
	Metrics     *monitor.Metrics
	Health      *lifecycle.HealthWriter
	Stop        lifecycle.StopSignal

	PollInterval   time.Duration
	MinimumCapital float64
	QuoteAsset     string

	// Optional performance-driven allocation. When ScorePath is set the
	// score book is reloaded each cycle to feed the switcher and weigher.
	Switcher   *allocation.Switcher
	Weigher    *allocation.Weigher
	ScorePath  string
	WeightPath string

	cycle      int64
	weights    map[string]float64
	justExited map[string]bool
}

// CycleStats summarizes one completed cycle.
type CycleStats struct {
	Processed int
	Errors    int
	OpenCount int
}

// Run executes cycles until the context is cancelled or a stop is
// requested. The stop check happens at the top of each cycle so an
// in-flight cycle always finishes.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The final record must land on every exit path, a panic escaping the
	// loop included, so external watchdogs never see a stale "running".
	defer func() {
		s.writeHealth("stopped", CycleStats{OpenCount: len(s.Store.All())})
	}()

	for {
		if s.Stop != nil && s.Stop.Stopped() {
			logger.Info("stop requested; leaving trade loop", zap.Int64("cycle", s.cycle))
			return
		}
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			logger.Info("context cancelled; leaving trade loop")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle processes every instrument once. A failure on one instrument
// never prevents the others from being processed.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	s.cycle++
	timer := monitor.NewTimer(s.metricsHistogram())
	s.justExited = make(map[string]bool)
	s.refreshAllocations()

	var stats CycleStats
	for _, symbol := range s.Instruments.Tickers() {
		if err := s.safeProcess(ctx, symbol); err != nil {
			stats.Errors++
			if s.Metrics != nil {
				s.Metrics.IncrementErrors()
			}
			logger.Error("instrument cycle failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
		stats.Processed++
	}
	stats.OpenCount = len(s.Store.All())

	elapsed := timer.Stop()
	if s.Metrics != nil {
		s.Metrics.IncrementCycles()
	}
	if s.Bus != nil {
		s.Bus.Publish(events.EventCycleComplete, events.CyclePayload{
			Cycle:      s.cycle,
			Processed:  stats.Processed,
			Errors:     stats.Errors,
			OpenCount:  stats.OpenCount,
			DurationMs: elapsed.Milliseconds(),
		})
	}
	s.writeHealth("running", stats)
	logger.Info("cycle complete",
		zap.Int64("cycle", s.cycle),
		zap.Int("processed", stats.Processed),
		zap.Int("errors", stats.Errors),
		zap.Int("open", stats.OpenCount),
		zap.Duration("took", elapsed))
	return stats
}

// safeProcess isolates a panicking strategy or gateway to its own
// instrument.
func (s *Scheduler) safeProcess(ctx context.Context, symbol string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", symbol, r)
		}
	}()
	return s.processInstrument(ctx, symbol)
}

func (s *Scheduler) processInstrument(ctx context.Context, symbol string) error {
	strat := s.strategyFor(symbol)
	if strat == nil {
		return nil
	}

	price, err := s.Gateway.CurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("price for %s: %w", symbol, err)
	}

	if pos := s.Store.Get(symbol); pos != nil {
		if strat.ShouldExit(symbol, price) {
			if s.Metrics != nil {
				s.Metrics.IncrementSignals()
			}
			return s.exit(ctx, strat, pos, price)
		}
		return nil
	}

	// Flat. The entry check also feeds the indicator series, so it runs
	// every cycle even when capital or a just-closed position blocks the
	// actual order.
	enter := strat.ShouldEnter(symbol, price)
	if !enter {
		return nil
	}
	if s.Metrics != nil {
		s.Metrics.IncrementSignals()
	}
	if s.justExited[symbol] {
		logger.Debug("skipping reentry in the same cycle", zap.String("symbol", symbol))
		return nil
	}
	return s.enter(ctx, strat, symbol, price)
}

func (s *Scheduler) enter(ctx context.Context, strat strategy.Strategy, symbol string, price float64) error {
	capital := s.capitalFor(symbol)
	if capital < s.MinimumCapital {
		s.alert(fmt.Sprintf("capital for %s is %.2f, below the %.2f minimum; skipping entry",
			symbol, capital, s.MinimumCapital), notify.SeverityWarning)
		return nil
	}
	balance, err := s.Gateway.Balance(ctx, s.QuoteAsset)
	if err != nil {
		return fmt.Errorf("balance check for %s: %w", symbol, err)
	}
	if capital > balance {
		s.alert(fmt.Sprintf("insufficient balance for %s: have %.2f, need %.2f",
			symbol, balance, capital), notify.SeverityWarning)
		return nil
	}

	amount := roundAmount(capital/price, s.Instruments.PrecisionFor(symbol))
	if amount <= 0 {
		return nil
	}

	res, err := s.Gateway.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol: symbol,
		Side:   exchange.SideBuy,
		Amount: amount,
		Price:  price,
	})
	if err != nil {
		s.publishOrderFailure(symbol, "entry", price)
		return fmt.Errorf("entry order for %s: %w", symbol, err)
	}

	if err := s.Store.Open(ctx, db.Position{
		Symbol:     symbol,
		EntryPrice: res.FillPrice,
		Amount:     res.Amount,
		Strategy:   strat.Name(),
	}); err != nil {
		// The order filled but the position could not be recorded; this
		// needs an operator.
		s.alert(fmt.Sprintf("filled entry for %s but failed to record position: %v",
			symbol, err), notify.SeverityCritical)
		return fmt.Errorf("record position for %s: %w", symbol, err)
	}
	if s.Metrics != nil {
		s.Metrics.IncrementOrders()
	}
	if err := s.Trades.Entry(ctx, symbol, res.FillPrice, res.Amount, strat.Name(), strat.Detail(symbol)); err != nil {
		logger.Warn("record entry trade log", zap.String("symbol", symbol), zap.Error(err))
	}
	return nil
}

func (s *Scheduler) exit(ctx context.Context, strat strategy.Strategy, pos *db.Position, price float64) error {
	res, err := s.Gateway.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol: pos.Symbol,
		Side:   exchange.SideSell,
		Amount: pos.Amount,
		Price:  price,
	})
	if err != nil {
		s.publishOrderFailure(pos.Symbol, "exit", price)
		return fmt.Errorf("exit order for %s: %w", pos.Symbol, err)
	}

	if err := s.Store.Close(ctx, pos.Symbol); err != nil {
		s.alert(fmt.Sprintf("filled exit for %s but failed to clear position: %v",
			pos.Symbol, err), notify.SeverityCritical)
		return fmt.Errorf("clear position for %s: %w", pos.Symbol, err)
	}
	s.justExited[pos.Symbol] = true
	if s.Metrics != nil {
		s.Metrics.IncrementOrders()
	}

	pnl := (res.FillPrice - pos.EntryPrice) * pos.Amount
	pnlPct := 0.0
	if pos.EntryPrice > 0 {
		pnlPct = (res.FillPrice - pos.EntryPrice) / pos.EntryPrice * 100
	}
	if err := s.Trades.Exit(ctx, pos.Symbol, res.FillPrice, pos.Amount, pnl, pnlPct, strat.Name(), strat.Detail(pos.Symbol)); err != nil {
		logger.Warn("record exit trade log", zap.String("symbol", pos.Symbol), zap.Error(err))
	}
	logger.Info("position closed",
		zap.String("symbol", pos.Symbol),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("exit", res.FillPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("pnl_pct", pnlPct))
	return nil
}

// strategyFor resolves the active strategy for a symbol, consulting the
// switcher when one is configured.
func (s *Scheduler) strategyFor(symbol string) strategy.Strategy {
	name := s.Instruments.Assignments[symbol]
	if s.Switcher != nil {
		if cur := s.Switcher.Current(symbol); cur != "" {
			if _, ok := s.Strategies[cur]; ok {
				name = cur
			}
		}
	}
	return s.Strategies[name]
}

// capitalFor returns the quote-currency budget for one entry. When
// performance weights are loaded they override the static allocation.
func (s *Scheduler) capitalFor(symbol string) float64 {
	base := s.Instruments.CapitalFor(symbol)
	if w, ok := s.weights[symbol]; ok && w > 0 {
		var total float64
		for _, t := range s.Instruments.Tickers() {
			total += s.Instruments.CapitalFor(t)
		}
		return w * total
	}
	return base
}

// refreshAllocations reloads the score book and updates the switcher
// assignments and capital weights. Allocation problems are logged and
// the previous assignments stay in force.
func (s *Scheduler) refreshAllocations() {
	if s.ScorePath == "" || (s.Switcher == nil && s.Weigher == nil) {
		return
	}
	book, err := allocation.LoadScores(s.ScorePath)
	if err != nil {
		logger.Warn("load score book", zap.Error(err))
		return
	}
	if len(book) == 0 {
		return
	}
	if s.Switcher != nil {
		for ticker, byStrategy := range book {
			s.Switcher.Pick(ticker, byStrategy)
		}
	}
	if s.Weigher != nil {
		s.weights = s.Weigher.Weights(book)
		if s.WeightPath != "" {
			if err := allocation.WriteWeights(s.WeightPath, s.weights); err != nil {
				logger.Warn("write weight file", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) alert(message, severity string) {
	logger.Warn(message)
	if s.Bus != nil {
		s.Bus.Publish(events.EventAlert, events.AlertPayload{
			Message:  message,
			Severity: severity,
		})
	}
}

func (s *Scheduler) publishOrderFailure(symbol, event string, price float64) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.EventOrderFailed, events.TradePayload{
		Symbol: symbol,
		Event:  event,
		Price:  price,
	})
}

func (s *Scheduler) writeHealth(state string, stats CycleStats) {
	if s.Health == nil {
		return
	}
	s.Health.Write(lifecycle.HealthStatus{
		State:     state,
		Cycle:     s.cycle,
		Processed: stats.Processed,
		Errors:    stats.Errors,
		OpenCount: stats.OpenCount,
	})
}

func (s *Scheduler) metricsHistogram() *monitor.LatencyHistogram {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.CycleLatency
}

func roundAmount(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
