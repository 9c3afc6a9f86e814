package simulation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/breakaway/internal/modules/market"
	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/strategy"
)

func TestRunDayMissingFileIsFlat(t *testing.T) {
	result, err := RunDay(filepath.Join(t.TempDir(), "gone.tks"), strategy.DefaultSettings(), zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, result.PnL)
	assert.Zero(t, result.Trades)
	assert.Equal(t, strategy.RegimeUnknown, result.Regime)
}

func TestAggregate(t *testing.T) {
	days := []DayResult{
		{File: "a.tks", PnL: 100, Invested: 1000, Trades: 3},
		{File: "b.tks", PnL: -50, Invested: 500, Trades: 1},
		{File: "c.tks", PnL: 200, Invested: 1500, Trades: 2},
	}

	s := Aggregate(days)
	assert.Equal(t, 250.0, s.TotalPnL)
	assert.Equal(t, 3000.0, s.Invested)
	assert.Equal(t, 6, s.Trades)
	assert.Equal(t, 2, s.PositiveDays)
	assert.Equal(t, 1, s.NegativeDays)
	assert.InDelta(t, 250.0/3000.0*100, s.ROI, 1e-9)
	assert.InDelta(t, 66.666, s.WinRate, 0.01)
	assert.Equal(t, 50.0, s.MaxDrawdown) // equity 100 -> 50 -> 250
	assert.Positive(t, s.DailyPnLStd)
	require.NotNil(t, s.Sharpe)
	assert.Positive(t, *s.Sharpe)
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Zero(t, s.TotalPnL)
	assert.Zero(t, s.ROI)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.Days)
	assert.Nil(t, s.Sharpe)
}

func TestReplayTracksPnLPeakBetweenResorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2026-01-05.tks")
	writer := market.NewTickWriter(path)

	// One runner among 14 flat tickers, quoted in boards of 15 ticks one
	// second apart. The ranking resorts every 1000 updates: once around
	// board 66 and again around board 133, where the position opens at
	// 75. The spike to 300 happens strictly between resorts, so only the
	// per-tick price refresh can observe it.
	base := float64(time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC).Unix())
	runnerPrice := func(board int) float64 {
		switch {
		case board == 0:
			return 50
		case board <= 133:
			return 75
		case board <= 140:
			return 300
		default:
			return 80
		}
	}

	for board := 0; board <= 150; board++ {
		ts := base + float64(board)
		require.NoError(t, writer.Append(market.Tick{Timestamp: ts, Ticker: "RUN", Price: runnerPrice(board)}))
		for i := 1; i <= 14; i++ {
			tick := market.Tick{Timestamp: ts, Ticker: fmt.Sprintf("FLAT%02d", i), Price: 100}
			require.NoError(t, writer.Append(tick))
		}
	}
	require.NoError(t, writer.Flush())

	settings := strategy.Settings{
		TakeProfitMarketPnL: 1e9,
		TrailStopMarketPnL:  1e9,
		MinMarketPnL:        0,
		EntryStdMult:        1.0,
		ExitStdMult:         1000,
		TopNThreshold:       3,
		MinEscapeTimeSec:    0,
		TradeIntervalMin:    1e9,
		TradeValue:          1000,
		MaxPnLTimeoutMin:    1e9,
		MaxTradeDurationMin: 1e9,
		MaxTradesPerDay:     5,
		TradeStartMinutes:   0,
		TradeCutoffMinutes:  24 * 60,
	}

	table := market.NewRankingTable()
	algo := strategy.NewBreakaway(settings, zerolog.Nop())

	lastTS, _, err := replayDay(path, table, algo)
	require.NoError(t, err)
	algo.CloseAll(table, lastTS)

	closed := algo.Portfolio.ClosedTrades()
	require.Len(t, closed, 1)

	trade := closed[0]
	assert.Equal(t, "RUN", trade.Ticker)
	assert.Equal(t, 75.0, trade.EntryPrice)
	assert.Equal(t, 80.0, trade.ExitPrice)
	assert.InDelta(t, (300.0-75.0)*float64(trade.Quantity), trade.UnrealizedPnLMax, 1e-9)
}

func TestRunnerPreservesDayOrder(t *testing.T) {
	// Files do not exist: each day comes back flat but named, so the
	// result order must match the input order.
	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "2026-01-05.tks"),
		filepath.Join(dir, "2026-01-06.tks"),
		filepath.Join(dir, "2026-01-07.tks"),
	}

	runner := NewRunner(files, 2, zerolog.Nop())
	summary, err := runner.Run(context.Background(), params.DefaultSpace().InitialConfig())
	require.NoError(t, err)

	require.Len(t, summary.DayResults, 3)
	assert.Equal(t, "2026-01-05.tks", summary.DayResults[0].File)
	assert.Equal(t, "2026-01-06.tks", summary.DayResults[1].File)
	assert.Equal(t, "2026-01-07.tks", summary.DayResults[2].File)
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := make([]string, 100)
	for i := range files {
		files[i] = filepath.Join(t.TempDir(), "x.tks")
	}

	runner := NewRunner(files, 1, zerolog.Nop())
	_, err := runner.Run(ctx, params.Config{})
	assert.ErrorIs(t, err, context.Canceled)
}
