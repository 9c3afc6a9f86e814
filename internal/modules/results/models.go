// Package results persists evaluated trials: one configuration plus the
// backtest metrics it produced. The store doubles as the evaluation
// cache, keyed by the configuration's canonical key, and round-trips
// through CSV for import and export.
package results

import (
	"time"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/simulation"
)

// Trial is one evaluated configuration with its backtest metrics.
type Trial struct {
	ID           int64         `json:"id"`
	ConfigKey    string        `json:"config_key"`
	Config       params.Config `json:"config"`
	PnL          float64       `json:"pnl"`
	Invested     float64       `json:"invested_capital"`
	ROI          float64       `json:"roi"`
	Trades       int           `json:"trades"`
	WinRate      float64       `json:"win_rate"`
	DailyPnLStd  float64       `json:"daily_pnl_std"`
	MaxDrawdown  float64       `json:"max_drawdown"`
	PositiveDays int           `json:"positive_days"`
	NegativeDays int           `json:"negative_days"`
	SessionID    string        `json:"session_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewTrial builds a trial from a configuration and its run summary.
func NewTrial(space *params.Space, cfg params.Config, summary simulation.Summary, sessionID string) Trial {
	return Trial{
		ConfigKey:    cfg.Key(space),
		Config:       cfg.Clone(),
		PnL:          summary.TotalPnL,
		Invested:     summary.Invested,
		ROI:          summary.ROI,
		Trades:       summary.Trades,
		WinRate:      summary.WinRate,
		DailyPnLStd:  summary.DailyPnLStd,
		MaxDrawdown:  summary.MaxDrawdown,
		PositiveDays: summary.PositiveDays,
		NegativeDays: summary.NegativeDays,
		SessionID:    sessionID,
		CreatedAt:    time.Now().UTC(),
	}
}
