package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/breakaway/internal/modules/market"
)

// tradingTS returns a unix timestamp landing at the given exchange-local
// clock on a fixed test day.
func tradingTS(hour, minute int) float64 {
	utc := time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC).Add(-exchangeUTCOffset)
	return float64(utc.Unix())
}

// leaderBoard seeds a table with 15 flat tickers plus one runner whose
// PnL is runnerPnL percent.
func leaderBoard(runnerPnL float64, ts float64) *market.RankingTable {
	table := market.NewRankingTable()
	for i := 0; i < 14; i++ {
		ticker := fmt.Sprintf("FLAT%02d", i)
		table.Update(ticker, 100, ts)
		table.Update(ticker, 100, ts+1)
	}
	table.Update("RUNNER", 50, ts)
	table.Update("RUNNER", 50*(1+runnerPnL/100), ts+1)
	table.Resort()
	return table
}

func testSettings() Settings {
	s := DefaultSettings()
	s.TradeValue = 1000
	s.MinEscapeTimeSec = 300
	s.EntryStdMult = 1.5
	s.TakeProfitMarketPnL = 100
	s.TrailStopMarketPnL = 200
	s.TradeStartMinutes = 9*60 + 30
	s.TradeCutoffMinutes = 16 * 60
	s.MaxTradesPerDay = 5
	return s
}

func TestDetectBreakawaysRequiresDwellTime(t *testing.T) {
	ts := tradingTS(10, 0)
	table := leaderBoard(50, ts)
	b := NewBreakaway(testSettings(), testLogger())

	// First sighting only starts the clock.
	assert.Empty(t, b.detectBreakaways(table, ts))

	// Before the dwell time nothing is confirmed.
	assert.Empty(t, b.detectBreakaways(table, ts+100))

	// After the dwell time the runner is a confirmed breakaway.
	got := b.detectBreakaways(table, ts+300)
	assert.Equal(t, []string{"RUNNER"}, got)
}

func TestDetectBreakawaysStdGate(t *testing.T) {
	ts := tradingTS(10, 0)
	// A 3% runner leaves the leaders' spread under the gate.
	table := leaderBoard(3, ts)
	b := NewBreakaway(testSettings(), testLogger())

	assert.Empty(t, b.detectBreakaways(table, ts))
	assert.Empty(t, b.detectBreakaways(table, ts+300))
}

func TestStepOpensConfirmedBreakaway(t *testing.T) {
	ts := tradingTS(10, 0)
	table := leaderBoard(50, ts)
	b := NewBreakaway(testSettings(), testLogger())

	b.Step(table, ts)
	assert.Empty(t, b.Portfolio.OpenTickers())

	b.Step(table, ts+300)
	require.Equal(t, []string{"RUNNER"}, b.Portfolio.OpenTickers())

	// One breakaway entry per ticker per session.
	b.Step(table, ts+600)
	openCount := 0
	for _, trade := range b.Portfolio.Trades {
		if trade.Open && trade.Ticker == "RUNNER" {
			openCount++
		}
	}
	assert.Equal(t, 1, openCount)
}

func TestStepRespectsTradingWindow(t *testing.T) {
	ts := tradingTS(8, 0) // before the 09:30 start
	table := leaderBoard(50, ts)
	b := NewBreakaway(testSettings(), testLogger())

	b.Step(table, ts)
	b.Step(table, ts+300)
	assert.Empty(t, b.Portfolio.OpenTickers())
}

func TestStepRespectsDailyTradeCap(t *testing.T) {
	ts := tradingTS(10, 0)
	table := leaderBoard(50, ts)

	s := testSettings()
	s.MaxTradesPerDay = 0
	b := NewBreakaway(s, testLogger())

	b.Step(table, ts)
	b.Step(table, ts+300)
	assert.Empty(t, b.Portfolio.OpenTickers())
}

func TestTakeProfitExit(t *testing.T) {
	ts := tradingTS(10, 0)
	table := leaderBoard(50, ts)

	s := testSettings()
	s.TakeProfitMarketPnL = 60
	b := NewBreakaway(s, testLogger())

	b.Step(table, ts)
	b.Step(table, ts+300)
	require.Equal(t, []string{"RUNNER"}, b.Portfolio.OpenTickers())

	// Runner pushes past the take-profit market PnL.
	table.Update("RUNNER", 50*1.65, ts+400)
	table.Resort()
	b.Step(table, ts+400)

	assert.Empty(t, b.Portfolio.OpenTickers())
	require.NotEmpty(t, b.Portfolio.ClosedTrades())
	assert.Positive(t, b.Portfolio.TotalPnL)
}

func TestMaxDurationExit(t *testing.T) {
	ts := tradingTS(10, 0)
	table := leaderBoard(50, ts)

	s := testSettings()
	s.MaxTradeDurationMin = 10
	s.MaxPnLTimeoutMin = 10000
	s.TakeProfitMarketPnL = 10000
	s.TrailStopMarketPnL = 10000
	s.ExitStdMult = 100 // keep the fallen-status exit out of the way
	b := NewBreakaway(s, testLogger())

	b.Step(table, ts)
	b.Step(table, ts+300)
	require.Equal(t, []string{"RUNNER"}, b.Portfolio.OpenTickers())

	b.Step(table, ts+300+11*60)
	assert.Empty(t, b.Portfolio.OpenTickers())
}

func TestClassifyRegime(t *testing.T) {
	up := make([]float64, 40)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	assert.Equal(t, RegimeTrendingUp, ClassifyRegime(up))

	down := make([]float64, 40)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	assert.Equal(t, RegimeTrendingDown, ClassifyRegime(down))

	assert.Equal(t, RegimeUnknown, ClassifyRegime([]float64{1, 2, 3}))
}
