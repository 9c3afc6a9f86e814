package strategy

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/market"
	"github.com/tradelab/breakaway/pkg/formulas"
)

const (
	// leaderCount is how many top-ranked tickers form the reference
	// group for the breakaway statistics.
	leaderCount = 15

	// minLeaderStd gates entries: when the leaders' PnL spread is
	// below this, nothing stands out enough to be a breakaway.
	minLeaderStd = 5.0

	// Tick timestamps are UTC; dates and trading hours are taken in
	// the exchange's local time.
	exchangeUTCOffset = -6 * time.Hour
)

// Breakaway runs the breakaway entry/exit logic over a ranking table,
// driving a Portfolio. One instance simulates one session; it is not
// safe for concurrent use.
type Breakaway struct {
	Settings  Settings
	Portfolio *Portfolio

	tradedTickers map[string]bool
	escapeSince   map[string]float64 // ticker -> ts its PnL first crossed the entry threshold
	topNSince     map[string]float64 // ticker -> ts it entered the top N
	tradesPerDay  map[string]int
	lastTradeTime float64
	hasTraded     bool

	log zerolog.Logger
}

// NewBreakaway creates a strategy instance with a fresh portfolio.
func NewBreakaway(settings Settings, logger zerolog.Logger) *Breakaway {
	return &Breakaway{
		Settings:      settings,
		Portfolio:     NewPortfolio(logger),
		tradedTickers: make(map[string]bool),
		escapeSince:   make(map[string]float64),
		topNSince:     make(map[string]float64),
		tradesPerDay:  make(map[string]int),
		log:           logger.With().Str("component", "breakaway").Logger(),
	}
}

// localTime shifts a unix timestamp into exchange-local time.
func localTime(timestamp float64) time.Time {
	return time.Unix(int64(timestamp), 0).UTC().Add(exchangeUTCOffset)
}

func localDate(timestamp float64) string {
	return localTime(timestamp).Format("2006-01-02")
}

// minutesOfDay returns the exchange-local clock as minutes since midnight.
func minutesOfDay(timestamp float64) float64 {
	t := localTime(timestamp)
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}

// canOpenTrade checks the trading window and the daily trade cap.
func (b *Breakaway) canOpenTrade(timestamp float64) bool {
	now := minutesOfDay(timestamp)
	if now < b.Settings.TradeStartMinutes || now >= b.Settings.TradeCutoffMinutes {
		return false
	}
	return b.tradesPerDay[localDate(timestamp)] < b.Settings.MaxTradesPerDay
}

// leaderStats returns mean and population std of the top leaders' PnLs.
// Std is reported as zero for tiny groups.
func leaderStats(table *market.RankingTable) (mean, std float64, n int) {
	leaders := table.TopN(leaderCount)
	if len(leaders) == 0 {
		return 0, 0, 0
	}
	pnls := make([]float64, len(leaders))
	for i, e := range leaders {
		pnls[i] = e.CurrentPnL
	}
	mean = formulas.Mean(pnls)
	if len(pnls) > 2 {
		std = formulas.PopStdDev(pnls)
	}
	return mean, std, len(pnls)
}

// detectBreakaways returns the tickers currently in a confirmed
// breakaway: PnL above mean + EntryStdMult·std, sustained for
// MinEscapeTimeSec both above the threshold and inside the top N.
func (b *Breakaway) detectBreakaways(table *market.RankingTable, timestamp float64) []string {
	leaders := table.TopN(leaderCount)
	if len(leaders) == 0 {
		return nil
	}

	mean, std, _ := leaderStats(table)
	if std < minLeaderStd {
		return nil
	}
	threshold := mean + b.Settings.EntryStdMult*std

	var breakaways []string
	for i, entry := range leaders {
		ticker := entry.Ticker

		if i < b.Settings.TopNThreshold {
			if _, ok := b.topNSince[ticker]; !ok {
				b.topNSince[ticker] = timestamp
			}
		} else {
			delete(b.topNSince, ticker)
		}

		if entry.CurrentPnL > threshold {
			since, ok := b.escapeSince[ticker]
			if !ok {
				b.escapeSince[ticker] = timestamp
				continue
			}
			topSince, inTopN := b.topNSince[ticker]
			if timestamp-since >= b.Settings.MinEscapeTimeSec &&
				inTopN && timestamp-topSince >= b.Settings.MinEscapeTimeSec {
				breakaways = append(breakaways, ticker)
			}
		} else {
			delete(b.escapeSince, ticker)
		}
	}
	return breakaways
}

// Step advances the strategy by one observation: closes positions whose
// exit conditions fire, then opens trades on confirmed breakaways and
// periodic re-entries.
func (b *Breakaway) Step(table *market.RankingTable, timestamp float64) {
	b.Portfolio.RefreshPrices(table)
	b.closeExhausted(table, timestamp)
	b.closeFallen(table, timestamp)
	b.openBreakaways(table, timestamp)
	b.openPeriodic(table, timestamp)
}

// closeExhausted applies the per-position exits: take profit, trailing
// stop, max-PnL stagnation and max trade duration.
func (b *Breakaway) closeExhausted(table *market.RankingTable, timestamp float64) {
	for _, ticker := range b.Portfolio.OpenTickers() {
		price, ok := table.LastPrice(ticker)
		if !ok {
			continue
		}

		var marketPnL, marketPnLMax, maxPnLTime float64
		if entry, found := table.Entry(ticker); found {
			marketPnL = entry.CurrentPnL
			marketPnLMax = entry.HighestPnL
			maxPnLTime = entry.HighestPnLTime
		} else {
			maxPnLTime = timestamp
		}

		if marketPnL >= b.Settings.TakeProfitMarketPnL {
			b.Portfolio.ClosePosition(ticker, price, timestamp, table)
			b.log.Debug().Str("ticker", ticker).Float64("market_pnl", marketPnL).Msg("take profit exit")
			continue
		}

		if marketPnLMax > 0 && marketPnLMax-marketPnL >= b.Settings.TrailStopMarketPnL {
			b.Portfolio.ClosePosition(ticker, price, timestamp, table)
			b.log.Debug().Str("ticker", ticker).Float64("market_pnl", marketPnL).Msg("trailing stop exit")
			continue
		}

		if timestamp-maxPnLTime >= b.Settings.MaxPnLTimeoutMin*60 {
			b.Portfolio.ClosePosition(ticker, price, timestamp, table)
			b.log.Debug().Str("ticker", ticker).Msg("max pnl stagnation exit")
			continue
		}

		maxDuration := b.Settings.MaxTradeDurationMin * 60
		for _, trade := range b.Portfolio.Trades {
			if trade.Open && trade.Ticker == ticker && timestamp-trade.EntryTime >= maxDuration {
				b.Portfolio.ClosePosition(ticker, price, timestamp, table)
				b.log.Debug().Str("ticker", ticker).Msg("max duration exit")
				break
			}
		}
	}
}

// closeFallen exits positions whose market PnL has dropped back to the
// pack: below mean - ExitStdMult·std of the leaders.
func (b *Breakaway) closeFallen(table *market.RankingTable, timestamp float64) {
	mean, std, n := leaderStats(table)
	if n == 0 {
		return
	}
	exitThreshold := mean - b.Settings.ExitStdMult*std

	for _, ticker := range b.Portfolio.OpenTickers() {
		entry, ok := table.Entry(ticker)
		if !ok {
			continue
		}
		if entry.CurrentPnL <= exitThreshold {
			if price, found := table.LastPrice(ticker); found {
				b.Portfolio.ClosePosition(ticker, price, timestamp, table)
				b.log.Debug().Str("ticker", ticker).Msg("breakaway status lost exit")
			}
		}
	}
}

// openBreakaways enters confirmed breakaways, one fixed-value trade per
// ticker per session.
func (b *Breakaway) openBreakaways(table *market.RankingTable, timestamp float64) {
	if !b.canOpenTrade(timestamp) {
		return
	}

	for _, ticker := range b.detectBreakaways(table, timestamp) {
		if b.tradedTickers[ticker] || b.Portfolio.HasOpenPosition(ticker) {
			continue
		}
		price, ok := table.LastPrice(ticker)
		if !ok || price <= 0 {
			continue
		}

		entry, _ := table.Entry(ticker)
		if entry == nil || entry.CurrentPnL <= b.Settings.MinMarketPnL {
			continue
		}

		quantity := int(b.Settings.TradeValue / price)
		if quantity <= 0 {
			continue
		}

		if b.Portfolio.OpenTrade(ticker, quantity, table, timestamp) {
			b.recordTrade(ticker, timestamp)
			b.log.Info().
				Str("ticker", ticker).
				Int("quantity", quantity).
				Float64("price", price).
				Int("trades_today", b.tradesPerDay[localDate(timestamp)]).
				Msg("opened breakaway trade")
		}
	}
}

// openPeriodic re-enters the best-ranked open ticker at a fixed
// interval, reinforcing the position that is working.
func (b *Breakaway) openPeriodic(table *market.RankingTable, timestamp float64) {
	interval := b.Settings.TradeIntervalMin * 60
	if b.hasTraded && timestamp-b.lastTradeTime < interval {
		return
	}
	if !b.canOpenTrade(timestamp) {
		return
	}

	ticker := b.Portfolio.BestRankedOpenTicker(table)
	if ticker == "" {
		return
	}
	price, ok := table.LastPrice(ticker)
	if !ok || price <= 0 {
		return
	}
	quantity := int(b.Settings.TradeValue / price)
	if quantity <= 0 {
		return
	}

	if b.Portfolio.OpenTrade(ticker, quantity, table, timestamp) {
		b.recordTrade(ticker, timestamp)
		b.log.Info().
			Str("ticker", ticker).
			Int("quantity", quantity).
			Msg("opened periodic trade")
	}
}

func (b *Breakaway) recordTrade(ticker string, timestamp float64) {
	b.tradedTickers[ticker] = true
	b.lastTradeTime = timestamp
	b.hasTraded = true
	b.tradesPerDay[localDate(timestamp)]++
}

// CloseAll liquidates every open position, typically at end of day.
func (b *Breakaway) CloseAll(table *market.RankingTable, timestamp float64) {
	b.Portfolio.CloseAll(table, timestamp)
}
