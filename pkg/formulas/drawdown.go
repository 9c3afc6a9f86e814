package formulas

// MaxDrawdown calculates the deepest peak-to-trough decline of an equity
// curve, returned as a positive number in the curve's own units.
//
// The curve here is a cumulative PnL series (one point per trading day),
// so the result is in currency, not percent.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}

	maxDD := 0.0
	peak := equity[0]

	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// DrawdownFromDailyPnL builds the equity curve from daily PnL increments
// and returns its maximum drawdown.
func DrawdownFromDailyPnL(dailyPnLs []float64) float64 {
	return MaxDrawdown(CumulativeSum(dailyPnLs))
}
