package allocation

import (
	"encoding/json"
	"fmt"
	"os"
)

// Score summarizes the recent performance of one strategy on one ticker.
type Score struct {
	Sharpe      float64 `json:"sharpe"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
	ROI         float64 `json:"roi"`
	TradeCount  int     `json:"trade_count"`
}

// ScoreBook maps ticker to strategy name to its latest Score. It is
// produced by an offline evaluation job and consumed here.
type ScoreBook map[string]map[string]Score

// LoadScores reads a score book from a JSON file. A missing file yields
// an empty book, not an error.
func LoadScores(path string) (ScoreBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScoreBook{}, nil
		}
		return nil, fmt.Errorf("read score file: %w", err)
	}
	var book ScoreBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse score file: %w", err)
	}
	return book, nil
}
