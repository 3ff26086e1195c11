package indicators

import "sync"

// DefaultWindow caps the per-symbol close history.
const DefaultWindow = 100

// Engine maintains per-symbol rolling close-price windows and derives
// indicator values from them. State lives only in memory; it is rebuilt
// from the price stream after a restart.
type Engine struct {
	mu     sync.Mutex
	closes map[string][]float64
	window int
}

// NewEngine builds an engine with the given history cap (<=0 uses DefaultWindow).
func NewEngine(window int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		closes: make(map[string][]float64),
		window: window,
	}
}

// Observe appends a close price for a symbol, evicting the oldest
// observation once the window is full.
func (e *Engine) Observe(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	arr := append(e.closes[symbol], price)
	if len(arr) > e.window {
		arr = arr[len(arr)-e.window:]
	}
	e.closes[symbol] = arr
}

// Len returns the number of observations recorded for a symbol.
func (e *Engine) Len(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.closes[symbol])
}

// Closes returns a copy of the current window for a symbol.
func (e *Engine) Closes(symbol string) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.closes[symbol]
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// RSI computes the relative strength index over the symbol's window.
// The second return is false until enough history has accumulated.
func (e *Engine) RSI(symbol string, period int) (float64, bool) {
	return RSI(e.Closes(symbol), period)
}

// MACD computes the MACD line and signal line for the symbol.
func (e *Engine) MACD(symbol string, short, long, signal int) (MACDValue, bool) {
	return MACD(e.Closes(symbol), short, long, signal)
}

// SMA computes a simple moving average over the last window observations.
func (e *Engine) SMA(symbol string, window int) (float64, bool) {
	return SMA(e.Closes(symbol), window)
}
