package indicators

// RSI computes the Relative Strength Index from simple rolling means of
// gains and losses over the last period deltas. Requires period+1 closes.
// A flat window (no gains and no losses) has no defined value and reports
// unavailable; zero losses with positive gains saturate at 100.
func RSI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period+1 {
		return 0, false
	}

	window := values[len(values)-period-1:]
	up := 0.0
	down := 0.0
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			up += change
		} else {
			down -= change
		}
	}
	up /= float64(period)
	down /= float64(period)

	if down == 0 {
		if up == 0 {
			return 0, false
		}
		return 100, true
	}

	rs := up / down
	return 100 - (100 / (1 + rs)), true
}
