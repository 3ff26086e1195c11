package allocation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Weight parameters. Tickers failing the filters get no capital.
const (
	DefaultMinROI        = 0.0
	DefaultMinTradeCount = 5
	DefaultTopN          = 5
)

// Weigher turns a score book into normalized capital weights per ticker.
type Weigher struct {
	MinROI        float64
	MinTradeCount int
	TopN          int
}

func NewWeigher() *Weigher {
	return &Weigher{
		MinROI:        DefaultMinROI,
		MinTradeCount: DefaultMinTradeCount,
		TopN:          DefaultTopN,
	}
}

// Weights picks each ticker's best-ROI strategy score, filters out
// tickers below the ROI or trade-count floor, keeps the top N by ROI
// and normalizes the survivors' ROI into weights summing to 1.
func (w *Weigher) Weights(book ScoreBook) map[string]float64 {
	type ranked struct {
		ticker string
		roi    float64
	}
	var candidates []ranked
	for ticker, byStrategy := range book {
		best, ok := bestScore(byStrategy)
		if !ok {
			continue
		}
		if best.ROI <= w.MinROI || best.TradeCount < w.MinTradeCount {
			continue
		}
		candidates = append(candidates, ranked{ticker: ticker, roi: best.ROI})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].roi != candidates[j].roi {
			return candidates[i].roi > candidates[j].roi
		}
		return candidates[i].ticker < candidates[j].ticker
	})
	if w.TopN > 0 && len(candidates) > w.TopN {
		candidates = candidates[:w.TopN]
	}

	var total float64
	for _, c := range candidates {
		total += c.roi
	}
	weights := make(map[string]float64, len(candidates))
	if total <= 0 {
		return weights
	}
	for _, c := range candidates {
		weights[c.ticker] = c.roi / total
	}
	return weights
}

func bestScore(byStrategy map[string]Score) (Score, bool) {
	var best Score
	found := false
	for _, s := range byStrategy {
		if !found || s.ROI > best.ROI {
			best = s
			found = true
		}
	}
	return best, found
}

// WriteWeights persists the weight map as JSON for external consumers.
func WriteWeights(path string, weights map[string]float64) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write weight file: %w", err)
	}
	return nil
}
