package strategy

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// maPair holds the moving averages from one observation so the next one
// can detect a crossing.
type maPair struct {
	short float64
	long  float64
}

// MACrossStrategy trades golden/death crosses of two simple moving
// averages. Strictly event-based: a decision requires the current and the
// previous MA pair, so nothing fires on the first available observation.
// It also tags the market state (trend, volatility) for diagnostics.
type MACrossStrategy struct {
	ctx         *Context
	shortWindow int
	longWindow  int

	prev        map[string]maPair
	marketState map[string]string
	lastSignal  map[string]string
	entries     map[string]int
	exits       map[string]int
}

// NewMACross creates a moving-average-cross strategy (typical windows 5/20).
func NewMACross(ctx *Context, short, long int) *MACrossStrategy {
	return &MACrossStrategy{
		ctx:         ctx,
		shortWindow: short,
		longWindow:  long,
		prev:        make(map[string]maPair),
		marketState: make(map[string]string),
		lastSignal:  make(map[string]string),
		entries:     make(map[string]int),
		exits:       make(map[string]int),
	}
}

func (s *MACrossStrategy) Name() string { return NameMACross }

func (s *MACrossStrategy) ShouldEnter(symbol string, price float64) bool {
	cur, prev, ok := s.observe(symbol, price)
	if !ok {
		return false
	}

	if cur.short > cur.long && prev.short <= prev.long {
		s.lastSignal[symbol] = signalEntry
		s.entries[symbol]++
		logger.Info("golden cross",
			zap.String("symbol", symbol),
			zap.Float64("short_ma", cur.short),
			zap.Float64("long_ma", cur.long),
			zap.String("market_state", s.marketState[symbol]),
			zap.Int("entry_count", s.entries[symbol]))
		return true
	}
	return false
}

func (s *MACrossStrategy) ShouldExit(symbol string, price float64) bool {
	cur, prev, ok := s.observe(symbol, price)
	if !ok {
		return false
	}

	if cur.short < cur.long && prev.short >= prev.long {
		s.lastSignal[symbol] = signalExit
		s.exits[symbol]++
		logger.Info("death cross",
			zap.String("symbol", symbol),
			zap.Float64("short_ma", cur.short),
			zap.Float64("long_ma", cur.long),
			zap.String("market_state", s.marketState[symbol]),
			zap.Int("exit_count", s.exits[symbol]))
		return true
	}
	return false
}

// observe pushes the price, computes the current MA pair and returns it
// together with the pair from the previous observation. ok is false until
// two consecutive MA pairs exist.
func (s *MACrossStrategy) observe(symbol string, price float64) (cur, prev maPair, ok bool) {
	s.ctx.Indicators.Observe(symbol, price)

	short, okShort := s.ctx.Indicators.SMA(symbol, s.shortWindow)
	long, okLong := s.ctx.Indicators.SMA(symbol, s.longWindow)
	if !okShort || !okLong {
		return maPair{}, maPair{}, false
	}
	cur = maPair{short: short, long: long}
	s.tagMarketState(symbol)

	prev, hadPrev := s.prev[symbol]
	s.prev[symbol] = cur
	if !hadPrev {
		return cur, maPair{}, false
	}
	return cur, prev, true
}

// tagMarketState derives trend and volatility labels from the close window.
// Diagnostic only; never feeds the enter/exit decision.
func (s *MACrossStrategy) tagMarketState(symbol string) {
	closes := s.ctx.Indicators.Closes(symbol)
	if len(closes) < 2 {
		return
	}

	diffSum := 0.0
	mean := closes[0]
	for i := 1; i < len(closes); i++ {
		diffSum += closes[i] - closes[i-1]
		mean += closes[i]
	}
	mean /= float64(len(closes))

	variance := 0.0
	for _, c := range closes {
		variance += (c - mean) * (c - mean)
	}
	stdev := math.Sqrt(variance / float64(len(closes)))

	trend := "down"
	if diffSum/float64(len(closes)-1) > 0 {
		trend = "up"
	}
	volatility := "low"
	if stdev > mean*0.01 {
		volatility = "high"
	}
	s.marketState[symbol] = fmt.Sprintf("trend=%s volatility=%s", trend, volatility)
}

func (s *MACrossStrategy) Detail(symbol string) string {
	cur, ok := s.prev[symbol]
	if !ok {
		return "ma=unavailable"
	}
	state := s.marketState[symbol]
	if state == "" {
		return fmt.Sprintf("short_ma=%.4f long_ma=%.4f", cur.short, cur.long)
	}
	return fmt.Sprintf("short_ma=%.4f long_ma=%.4f %s", cur.short, cur.long, state)
}
