package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Instruments maps tickers to their assigned strategy and sizing settings.
// Mirrors config/instruments.yaml:
//
//	assignments:
//	  KRW-BTC: RSI
//	strategy:
//	  RSI: {period: 14, entry_threshold: 30, exit_threshold: 70}
//	capital:
//	  KRW-BTC: 50000
//	precision:
//	  KRW-BTC: 6
type Instruments struct {
	Assignments map[string]string             `yaml:"assignments"`
	Strategy    map[string]map[string]float64 `yaml:"strategy"`
	Capital     map[string]float64            `yaml:"capital"`
	Precision   map[string]int                `yaml:"precision"`
}

const defaultPrecision = 6

// LoadInstruments parses the instrument assignment file.
func LoadInstruments(path string) (*Instruments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments config: %w", err)
	}

	var ins Instruments
	if err := yaml.Unmarshal(data, &ins); err != nil {
		return nil, fmt.Errorf("parse instruments config: %w", err)
	}
	if len(ins.Assignments) == 0 {
		return nil, fmt.Errorf("instruments config %s has no assignments", path)
	}
	return &ins, nil
}

// Tickers returns the configured tickers in stable sorted order.
func (i *Instruments) Tickers() []string {
	out := make([]string, 0, len(i.Assignments))
	for t := range i.Assignments {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// StrategyParams returns the parameter map for a strategy name, never nil.
func (i *Instruments) StrategyParams(name string) map[string]float64 {
	if p, ok := i.Strategy[name]; ok {
		return p
	}
	return map[string]float64{}
}

// CapitalFor returns the capital allocated to a ticker.
func (i *Instruments) CapitalFor(ticker string) float64 {
	return i.Capital[ticker]
}

// PrecisionFor returns the amount precision for a ticker.
func (i *Instruments) PrecisionFor(ticker string) int {
	if p, ok := i.Precision[ticker]; ok {
		return p
	}
	return defaultPrecision
}
