package simulation

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/market"
	"github.com/tradelab/breakaway/internal/modules/strategy"
)

// indexBase anchors the synthetic equal-weight index used for regime
// classification.
const indexBase = 100.0

// RunDay replays one dataset through the strategy and returns its
// metrics. A missing dataset file yields a zero result rather than an
// error so one lost day cannot sink a whole evaluation.
func RunDay(path string, settings strategy.Settings, logger zerolog.Logger) (DayResult, error) {
	result := DayResult{File: filepath.Base(path), Regime: strategy.RegimeUnknown}

	table := market.NewRankingTable()
	algo := strategy.NewBreakaway(settings, logger)

	lastTS, indexSeries, err := replayDay(path, table, algo)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("file", path).Msg("dataset file missing, counting day as flat")
			return result, nil
		}
		return result, err
	}

	algo.CloseAll(table, lastTS)

	closed := algo.Portfolio.ClosedTrades()
	tickers := make(map[string]bool)
	for _, trade := range closed {
		tickers[trade.Ticker] = true
	}

	result.PnL = algo.Portfolio.TotalPnL
	result.Invested = algo.Portfolio.InvestedClosed()
	result.Trades = len(closed)
	result.TradedTickers = len(tickers)
	if result.Invested != 0 {
		result.ROI = result.PnL / result.Invested * 100
	}
	result.Regime = strategy.ClassifyRegime(indexSeries)

	return result, nil
}

// replayDay streams one dataset through the strategy. Open positions
// refresh on every tick so their running PnL peaks track the real price
// path; the strategy itself only steps when the ranking resorts.
func replayDay(path string, table *market.RankingTable, algo *strategy.Breakaway) (float64, []float64, error) {
	var lastTS float64
	var indexSeries []float64

	err := market.ReadTicks(path, func(tick market.Tick) error {
		table.Update(tick.Ticker, tick.Price, tick.Timestamp)
		lastTS = tick.Timestamp
		algo.Portfolio.RefreshPrices(table)
		if table.MaybeResort() {
			indexSeries = append(indexSeries, indexValue(table))
			algo.Step(table, tick.Timestamp)
		}
		return nil
	})
	return lastTS, indexSeries, err
}

// indexValue is the session's equal-weight index level: the base plus
// the mean intraday PnL across all ranked tickers.
func indexValue(table *market.RankingTable) float64 {
	ranked := table.TopN(table.Len())
	if len(ranked) == 0 {
		return indexBase
	}
	sum := 0.0
	for _, e := range ranked {
		sum += e.CurrentPnL
	}
	return indexBase + sum/float64(len(ranked))
}
