package strategy

import "github.com/tradelab/breakaway/pkg/formulas"

// Regime labels the broad tape condition of a trading day.
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeChoppy       Regime = "choppy"
	RegimeUnknown      Regime = "unknown"
)

const (
	regimeRSILength = 14
	regimeSMALength = 20
	rsiUpperBand    = 60.0
	rsiLowerBand    = 40.0
)

// ClassifyRegime labels a day from an equal-weight index of the
// session's prices: RSI against its bands plus position relative to the
// moving average. Days without enough data are unknown.
func ClassifyRegime(indexPrices []float64) Regime {
	rsi := formulas.RSI(indexPrices, regimeRSILength)
	sma := formulas.SMA(indexPrices, regimeSMALength)
	if rsi == nil || sma == nil {
		return RegimeUnknown
	}

	last := indexPrices[len(indexPrices)-1]
	switch {
	case *rsi >= rsiUpperBand && last > *sma:
		return RegimeTrendingUp
	case *rsi <= rsiLowerBand && last < *sma:
		return RegimeTrendingDown
	default:
		return RegimeChoppy
	}
}
