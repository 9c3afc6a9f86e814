// Package strategy implements the breakaway trading strategy and the
// portfolio bookkeeping behind it. A breakaway is a ticker whose intraday
// PnL pulls far above the mean of the market leaders; the strategy enters
// after the ticker has held that state long enough and exits on take
// profit, trailing stop, stagnation or loss of breakaway status.
package strategy

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/market"
)

// InitialCash is the starting cash balance of a simulated portfolio.
const InitialCash = 1_000_000.0

// Trade is a single position, open or closed. Quantities are whole
// shares; times are unix seconds matching the tick data.
type Trade struct {
	Ticker           string
	Quantity         int
	EntryPrice       float64
	EntryTime        float64
	LastPrice        float64
	UnrealizedPnL    float64
	UnrealizedPnLMax float64
	Invested         float64
	Open             bool

	ExitPrice    float64
	ExitTime     float64
	RealizedPnL  float64
	MarketPnLMax float64 // ticker's best market PnL, recorded at close
}

// Portfolio tracks cash and all trades of one simulated session.
type Portfolio struct {
	Trades   []*Trade
	Cash     float64
	TotalPnL float64

	log zerolog.Logger
}

// NewPortfolio creates a portfolio with the standard starting balance.
func NewPortfolio(logger zerolog.Logger) *Portfolio {
	return &Portfolio{
		Cash: InitialCash,
		log:  logger.With().Str("component", "portfolio").Logger(),
	}
}

// RefreshPrices updates last price and unrealized PnL of every open
// trade from the ranking table.
func (p *Portfolio) RefreshPrices(table *market.RankingTable) {
	for _, trade := range p.Trades {
		if !trade.Open {
			continue
		}
		price, ok := table.LastPrice(trade.Ticker)
		if !ok {
			continue
		}
		trade.LastPrice = price
		trade.UnrealizedPnL = (price - trade.EntryPrice) * float64(trade.Quantity)
		if trade.UnrealizedPnL > trade.UnrealizedPnLMax {
			trade.UnrealizedPnLMax = trade.UnrealizedPnL
		}
	}
}

// OpenTrade buys quantity shares at the last known price. Returns false
// when no price is known or cash is insufficient.
func (p *Portfolio) OpenTrade(ticker string, quantity int, table *market.RankingTable, timestamp float64) bool {
	price, ok := table.LastPrice(ticker)
	if !ok {
		p.log.Debug().Str("ticker", ticker).Msg("no price available, trade skipped")
		return false
	}

	cost := price * float64(quantity)
	if cost > p.Cash {
		p.log.Debug().Str("ticker", ticker).Float64("cost", cost).Msg("insufficient cash, trade skipped")
		return false
	}

	p.Trades = append(p.Trades, &Trade{
		Ticker:     ticker,
		Quantity:   quantity,
		EntryPrice: price,
		EntryTime:  timestamp,
		LastPrice:  price,
		Invested:   cost,
		Open:       true,
	})
	p.Cash -= cost
	return true
}

// ClosePosition closes every open trade on a ticker at the given price,
// realizing PnL and returning the proceeds to cash.
func (p *Portfolio) ClosePosition(ticker string, price, timestamp float64, table *market.RankingTable) bool {
	closedAny := false
	for _, trade := range p.Trades {
		if trade.Ticker != ticker || !trade.Open {
			continue
		}

		realized := (price - trade.EntryPrice) * float64(trade.Quantity)
		p.TotalPnL += realized
		p.Cash += price * float64(trade.Quantity)

		trade.ExitPrice = price
		trade.ExitTime = timestamp
		trade.RealizedPnL = realized
		trade.Open = false
		if entry, ok := table.Entry(ticker); ok {
			trade.MarketPnLMax = entry.HighestPnL
		}
		closedAny = true
	}
	return closedAny
}

// CloseAll closes every open position at its last known price.
func (p *Portfolio) CloseAll(table *market.RankingTable, timestamp float64) {
	for _, trade := range p.Trades {
		if !trade.Open {
			continue
		}
		price, ok := table.LastPrice(trade.Ticker)
		if !ok {
			p.log.Warn().Str("ticker", trade.Ticker).Msg("no price available to close position")
			continue
		}
		p.ClosePosition(trade.Ticker, price, timestamp, table)
	}
}

// HasOpenPosition reports whether a ticker has any open trade.
func (p *Portfolio) HasOpenPosition(ticker string) bool {
	for _, trade := range p.Trades {
		if trade.Open && trade.Ticker == ticker {
			return true
		}
	}
	return false
}

// OpenTickers returns the distinct tickers with open trades, sorted.
func (p *Portfolio) OpenTickers() []string {
	seen := make(map[string]bool)
	for _, trade := range p.Trades {
		if trade.Open {
			seen[trade.Ticker] = true
		}
	}
	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// BestRankedOpenTicker returns the open ticker ranked highest in the
// table, or "" when no open trade appears in the ranking.
func (p *Portfolio) BestRankedOpenTicker(table *market.RankingTable) string {
	table.Resort()
	open := make(map[string]bool)
	for _, t := range p.OpenTickers() {
		open[t] = true
	}
	for _, entry := range table.TopN(table.Len()) {
		if open[entry.Ticker] {
			return entry.Ticker
		}
	}
	return ""
}

// ClosedTrades returns all closed trades.
func (p *Portfolio) ClosedTrades() []*Trade {
	var closed []*Trade
	for _, trade := range p.Trades {
		if !trade.Open {
			closed = append(closed, trade)
		}
	}
	return closed
}

// InvestedClosed returns the total amount invested across closed trades.
func (p *Portfolio) InvestedClosed() float64 {
	total := 0.0
	for _, trade := range p.Trades {
		if !trade.Open {
			total += trade.Invested
		}
	}
	return total
}
