package indicators

// MACDValue bundles the MACD line with its signal line.
type MACDValue struct {
	MACD   float64
	Signal float64
}

// MACD computes the MACD line (short EMA minus long EMA) and the signal
// line (EMA of the MACD line). Requires max(short,long)+1 closes.
func MACD(values []float64, short, long, signal int) (MACDValue, bool) {
	if short <= 0 || long <= 0 || signal <= 0 {
		return MACDValue{}, false
	}
	need := short
	if long > need {
		need = long
	}
	if len(values) < need+1 {
		return MACDValue{}, false
	}

	emaShort := EMASeries(values, short)
	emaLong := EMASeries(values, long)

	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = emaShort[i] - emaLong[i]
	}
	signalLine := EMASeries(macdLine, signal)

	return MACDValue{
		MACD:   macdLine[len(macdLine)-1],
		Signal: signalLine[len(signalLine)-1],
	}, true
}
