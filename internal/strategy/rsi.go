package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// RSIStrategy enters on oversold and exits on overbought readings.
// Level-triggered: the condition re-fires every cycle while the threshold
// holds; the trading loop suppresses duplicates through position existence.
type RSIStrategy struct {
	ctx            *Context
	period         int
	entryThreshold float64
	exitThreshold  float64

	lastRSI    map[string]float64
	lastSignal map[string]string
	entries    map[string]int
	exits      map[string]int
}

// NewRSI creates an RSI strategy (typical thresholds 30/70, period 14).
func NewRSI(ctx *Context, period int, entry, exit float64) *RSIStrategy {
	return &RSIStrategy{
		ctx:            ctx,
		period:         period,
		entryThreshold: entry,
		exitThreshold:  exit,
		lastRSI:        make(map[string]float64),
		lastSignal:     make(map[string]string),
		entries:        make(map[string]int),
		exits:          make(map[string]int),
	}
}

func (s *RSIStrategy) Name() string { return NameRSI }

func (s *RSIStrategy) ShouldEnter(symbol string, price float64) bool {
	s.ctx.Indicators.Observe(symbol, price)

	rsi, ok := s.ctx.Indicators.RSI(symbol, s.period)
	if !ok {
		return false
	}
	s.lastRSI[symbol] = rsi

	if rsi < s.entryThreshold {
		s.lastSignal[symbol] = signalEntry
		s.entries[symbol]++
		logger.Info("rsi entry condition met",
			zap.String("symbol", symbol),
			zap.Float64("rsi", rsi),
			zap.Float64("threshold", s.entryThreshold),
			zap.Int("entry_count", s.entries[symbol]))
		return true
	}

	logger.Debug("rsi entry condition not met",
		zap.String("symbol", symbol), zap.Float64("rsi", rsi))
	return false
}

func (s *RSIStrategy) ShouldExit(symbol string, price float64) bool {
	s.ctx.Indicators.Observe(symbol, price)

	rsi, ok := s.ctx.Indicators.RSI(symbol, s.period)
	if !ok {
		return false
	}
	s.lastRSI[symbol] = rsi

	if rsi > s.exitThreshold {
		s.lastSignal[symbol] = signalExit
		s.exits[symbol]++
		logger.Info("rsi exit condition met",
			zap.String("symbol", symbol),
			zap.Float64("rsi", rsi),
			zap.Float64("threshold", s.exitThreshold),
			zap.Int("exit_count", s.exits[symbol]))
		return true
	}

	logger.Debug("rsi exit condition not met",
		zap.String("symbol", symbol), zap.Float64("rsi", rsi))
	return false
}

func (s *RSIStrategy) Detail(symbol string) string {
	rsi, ok := s.lastRSI[symbol]
	if !ok {
		return "rsi=unavailable"
	}
	return fmt.Sprintf("rsi=%.2f", rsi)
}
