package market

import "sort"

// ResortThreshold is how many ticker updates accumulate before the
// ranking is recomputed.
const ResortThreshold = 1000

// TickerEntry tracks one ticker's intraday PnL relative to its first
// observed price. PnL values are percentages.
type TickerEntry struct {
	Ticker     string
	FirstPrice float64
	LastPrice  float64
	FirstTime  float64
	LastTime   float64

	CurrentPnL float64

	HighestPnL      float64
	HighestPnLTime  float64
	HighestPnLPrice float64

	// Deepest fall from the running high, and the peak/trough pair
	// that produced it.
	MaxDrawdown float64
	PeakPnL     float64
	PeakPrice   float64
	PeakTime    float64
	TroughPnL   float64
	TroughPrice float64
	TroughTime  float64
}

func newTickerEntry(ticker string, price, timestamp float64) *TickerEntry {
	return &TickerEntry{
		Ticker:          ticker,
		FirstPrice:      price,
		LastPrice:       price,
		FirstTime:       timestamp,
		LastTime:        timestamp,
		HighestPnLTime:  timestamp,
		HighestPnLPrice: price,
		PeakPrice:       price,
		PeakTime:        timestamp,
		TroughPrice:     price,
		TroughTime:      timestamp,
	}
}

func (e *TickerEntry) update(price, timestamp float64) {
	e.LastPrice = price
	e.LastTime = timestamp
	e.CurrentPnL = (price - e.FirstPrice) / e.FirstPrice * 100

	if e.CurrentPnL > e.HighestPnL {
		e.HighestPnL = e.CurrentPnL
		e.HighestPnLPrice = price
		e.HighestPnLTime = timestamp
	}

	drawdown := e.CurrentPnL - e.HighestPnL
	if drawdown < e.MaxDrawdown {
		e.MaxDrawdown = drawdown
		e.PeakPnL = e.HighestPnL
		e.PeakPrice = e.HighestPnLPrice
		e.PeakTime = e.HighestPnLTime
		e.TroughPnL = e.CurrentPnL
		e.TroughPrice = price
		e.TroughTime = timestamp
	}
}

// RankingTable ranks tickers by intraday PnL. Updates are cheap; the
// sorted view is only recomputed every ResortThreshold updates, or on
// an explicit Resort.
type RankingTable struct {
	entries     map[string]*TickerEntry
	ranked      []*TickerEntry
	updateCount int
}

// NewRankingTable creates an empty table.
func NewRankingTable() *RankingTable {
	return &RankingTable{entries: make(map[string]*TickerEntry)}
}

// Update records a new price for a ticker.
func (t *RankingTable) Update(ticker string, price, timestamp float64) {
	entry, ok := t.entries[ticker]
	if !ok {
		t.entries[ticker] = newTickerEntry(ticker, price, timestamp)
	} else {
		entry.update(price, timestamp)
	}
	t.updateCount++
}

// Resort recomputes the ranked view, best PnL first.
func (t *RankingTable) Resort() {
	t.ranked = t.ranked[:0]
	for _, e := range t.entries {
		t.ranked = append(t.ranked, e)
	}
	sort.Slice(t.ranked, func(i, j int) bool {
		if t.ranked[i].CurrentPnL != t.ranked[j].CurrentPnL {
			return t.ranked[i].CurrentPnL > t.ranked[j].CurrentPnL
		}
		return t.ranked[i].Ticker < t.ranked[j].Ticker
	})
	t.updateCount = 0
}

// MaybeResort resorts when enough updates have accumulated, reporting
// whether a resort happened.
func (t *RankingTable) MaybeResort() bool {
	if t.updateCount >= ResortThreshold {
		t.Resort()
		return true
	}
	return false
}

// TopN returns the n best-performing tickers from the last resort.
func (t *RankingTable) TopN(n int) []*TickerEntry {
	if n > len(t.ranked) {
		n = len(t.ranked)
	}
	return t.ranked[:n]
}

// LastPrice returns the most recent price seen for a ticker.
func (t *RankingTable) LastPrice(ticker string) (float64, bool) {
	entry, ok := t.entries[ticker]
	if !ok {
		return 0, false
	}
	return entry.LastPrice, true
}

// Entry returns the tracked entry for a ticker.
func (t *RankingTable) Entry(ticker string) (*TickerEntry, bool) {
	entry, ok := t.entries[ticker]
	return entry, ok
}

// Len returns the number of tracked tickers.
func (t *RankingTable) Len() int {
	return len(t.entries)
}

// Reset clears all tracked state for a new trading day.
func (t *RankingTable) Reset() {
	t.entries = make(map[string]*TickerEntry)
	t.ranked = nil
	t.updateCount = 0
}
