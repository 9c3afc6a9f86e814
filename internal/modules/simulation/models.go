// Package simulation replays daily tick datasets through the breakaway
// strategy and aggregates the per-day results into the metrics the
// optimizer scores on.
package simulation

import "github.com/tradelab/breakaway/internal/modules/strategy"

// DayResult is the outcome of one dataset file (one trading day).
type DayResult struct {
	File          string          `json:"file"`
	PnL           float64         `json:"pnl"`
	Invested      float64         `json:"invested_capital"`
	Trades        int             `json:"trades"`
	TradedTickers int             `json:"traded_tickers"`
	ROI           float64         `json:"roi"` // percent, PnL over invested capital
	Regime        strategy.Regime `json:"regime"`
}

// Summary aggregates a full multi-day run of one configuration.
type Summary struct {
	TotalPnL     float64 `json:"total_pnl"`
	Invested     float64 `json:"invested_capital"`
	ROI          float64 `json:"roi"`
	Trades       int     `json:"trades"`
	WinRate      float64 `json:"win_rate"` // percent of positive days
	DailyPnLStd  float64 `json:"daily_pnl_std"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	PositiveDays int     `json:"positive_days"`
	NegativeDays int     `json:"negative_days"`
	Days         int     `json:"days"`

	// Sharpe is the annualized Sharpe ratio of the daily returns, nil
	// when the run is too short or too flat to compute one.
	Sharpe *float64 `json:"sharpe,omitempty"`

	DayResults []DayResult `json:"day_results,omitempty"`
}
