package strategy

import (
	"errors"

	"coinhunter/internal/indicators"
)

// Strategy decides entries and exits for one instrument at a time.
// Both calls first feed the current price into the indicator engine, so
// a decision always reflects the just-observed price. When the required
// indicator is still warming up, both calls return false.
type Strategy interface {
	// Name returns the registry name (RSI, MACD, MA_CROSS).
	Name() string
	ShouldEnter(symbol string, price float64) bool
	ShouldExit(symbol string, price float64) bool
	// Detail returns a short diagnostic note for the last decision on a
	// symbol, suitable for trade-log entries.
	Detail(symbol string) string
}

// Context bundles shared services for strategies.
type Context struct {
	Indicators *indicators.Engine
}

// Signal states tracked per symbol to suppress duplicate edge-triggered
// decisions.
const (
	signalNone  = ""
	signalEntry = "entry"
	signalExit  = "exit"
)

// ErrUnknownStrategy marks a configuration problem: the assigned strategy
// name has no registered implementation.
var ErrUnknownStrategy = errors.New("strategy: unknown strategy name")

// Registry names.
const (
	NameRSI     = "RSI"
	NameMACD    = "MACD"
	NameMACross = "MA_CROSS"
)

// New builds a strategy by registry name with the given parameters.
// Missing parameters fall back to the conventional defaults.
func New(name string, params map[string]float64, ctx *Context) (Strategy, error) {
	switch name {
	case NameRSI:
		return NewRSI(ctx,
			paramInt(params, "period", 14),
			param(params, "entry_threshold", 30),
			param(params, "exit_threshold", 70),
		), nil
	case NameMACD:
		return NewMACD(ctx,
			paramInt(params, "short_window", 12),
			paramInt(params, "long_window", 26),
			paramInt(params, "signal_window", 9),
		), nil
	case NameMACross:
		return NewMACross(ctx,
			paramInt(params, "short_window", 5),
			paramInt(params, "long_window", 20),
		), nil
	default:
		return nil, ErrUnknownStrategy
	}
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func paramInt(params map[string]float64, key string, def int) int {
	if v, ok := params[key]; ok {
		return int(v)
	}
	return def
}
