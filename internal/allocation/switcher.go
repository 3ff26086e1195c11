package allocation

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

// DefaultCooldown is how long a ticker keeps its strategy after a switch.
const DefaultCooldown = 24 * time.Hour

// Switcher picks the best-scoring strategy per ticker, with a cooldown
// so a ticker does not flap between strategies on noisy scores.
type Switcher struct {
	mu         sync.Mutex
	current    map[string]string
	lastSwitch map[string]time.Time
	cooldown   time.Duration
	now        func() time.Time
}

func NewSwitcher(initial map[string]string) *Switcher {
	current := make(map[string]string, len(initial))
	for k, v := range initial {
		current[k] = v
	}
	return &Switcher{
		current:    current,
		lastSwitch: make(map[string]time.Time),
		cooldown:   DefaultCooldown,
		now:        time.Now,
	}
}

// composite collapses a Score into a single comparable number.
func composite(s Score) float64 {
	return 0.5*s.Sharpe + 0.3*s.WinRate - 0.2*s.MaxDrawdown
}

// Pick returns the strategy to use for ticker given the latest scores.
// The assignment changes only when a different strategy beats the current
// one on the composite score and the cooldown has elapsed.
func (sw *Switcher) Pick(ticker string, byStrategy map[string]Score) string {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cur := sw.current[ticker]
	if len(byStrategy) == 0 {
		return cur
	}

	bestName, bestVal := cur, -1e18
	if s, ok := byStrategy[cur]; ok {
		bestVal = composite(s)
	}
	for name, s := range byStrategy {
		if v := composite(s); v > bestVal {
			bestName, bestVal = name, v
		}
	}
	if bestName == cur || cur == "" {
		if cur == "" && bestName != "" {
			sw.current[ticker] = bestName
			sw.lastSwitch[ticker] = sw.now()
		}
		return sw.current[ticker]
	}

	if last, ok := sw.lastSwitch[ticker]; ok && sw.now().Sub(last) < sw.cooldown {
		return cur
	}

	logger.Info("strategy switch",
		zap.String("ticker", ticker),
		zap.String("from", cur),
		zap.String("to", bestName),
		zap.Float64("score", bestVal))
	sw.current[ticker] = bestName
	sw.lastSwitch[ticker] = sw.now()
	return bestName
}

// Current returns the active assignment for ticker.
func (sw *Switcher) Current(ticker string) string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.current[ticker]
}
