package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"coinhunter/internal/indicators"
	"coinhunter/pkg/logger"
)

// MACDStrategy enters when the MACD line is above the signal line and
// exits when it drops below. Edge-triggered through a per-symbol
// last-signal state: while MACD stays above the signal line only the
// first cycle fires.
type MACDStrategy struct {
	ctx          *Context
	shortWindow  int
	longWindow   int
	signalWindow int

	lastValue  map[string]indicators.MACDValue
	lastSignal map[string]string
	entries    map[string]int
	exits      map[string]int
}

// NewMACD creates a MACD strategy (typical windows 12/26/9).
func NewMACD(ctx *Context, short, long, signal int) *MACDStrategy {
	return &MACDStrategy{
		ctx:          ctx,
		shortWindow:  short,
		longWindow:   long,
		signalWindow: signal,
		lastValue:    make(map[string]indicators.MACDValue),
		lastSignal:   make(map[string]string),
		entries:      make(map[string]int),
		exits:        make(map[string]int),
	}
}

func (s *MACDStrategy) Name() string { return NameMACD }

func (s *MACDStrategy) ShouldEnter(symbol string, price float64) bool {
	s.ctx.Indicators.Observe(symbol, price)

	v, ok := s.ctx.Indicators.MACD(symbol, s.shortWindow, s.longWindow, s.signalWindow)
	if !ok {
		return false
	}
	s.lastValue[symbol] = v

	if v.MACD > v.Signal && s.lastSignal[symbol] != signalEntry {
		s.lastSignal[symbol] = signalEntry
		s.entries[symbol]++
		logger.Info("macd entry signal",
			zap.String("symbol", symbol),
			zap.Float64("macd", v.MACD),
			zap.Float64("signal", v.Signal),
			zap.Int("entry_count", s.entries[symbol]))
		return true
	}
	return false
}

func (s *MACDStrategy) ShouldExit(symbol string, price float64) bool {
	s.ctx.Indicators.Observe(symbol, price)

	v, ok := s.ctx.Indicators.MACD(symbol, s.shortWindow, s.longWindow, s.signalWindow)
	if !ok {
		return false
	}
	s.lastValue[symbol] = v

	if v.MACD < v.Signal && s.lastSignal[symbol] != signalExit {
		s.lastSignal[symbol] = signalExit
		s.exits[symbol]++
		logger.Info("macd exit signal",
			zap.String("symbol", symbol),
			zap.Float64("macd", v.MACD),
			zap.Float64("signal", v.Signal),
			zap.Int("exit_count", s.exits[symbol]))
		return true
	}
	return false
}

func (s *MACDStrategy) Detail(symbol string) string {
	v, ok := s.lastValue[symbol]
	if !ok {
		return "macd=unavailable"
	}
	return fmt.Sprintf("macd=%.4f signal=%.4f", v.MACD, v.Signal)
}
