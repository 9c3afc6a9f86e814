package strategy

import "github.com/tradelab/breakaway/internal/modules/params"

// Settings are the breakaway strategy parameters for one simulation run.
// PnL thresholds are market PnL percentages, times are in the units
// their names state, clock values are minutes since midnight.
type Settings struct {
	TakeProfitMarketPnL float64
	TrailStopMarketPnL  float64
	MinMarketPnL        float64
	EntryStdMult        float64 // start_echappee_threshold
	ExitStdMult         float64 // stop_echappee_threshold
	TopNThreshold       int
	MinEscapeTimeSec    float64
	TradeIntervalMin    float64
	TradeValue          float64
	MaxPnLTimeoutMin    float64
	MaxTradeDurationMin float64
	MaxTradesPerDay     int
	TradeStartMinutes   float64 // clock, minutes since midnight
	TradeCutoffMinutes  float64
}

// DefaultSettings mirrors the strategy's built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		TakeProfitMarketPnL: 50,
		TrailStopMarketPnL:  20,
		MinMarketPnL:        15,
		EntryStdMult:        0.78,
		ExitStdMult:         0,
		TopNThreshold:       5,
		MinEscapeTimeSec:    300,
		TradeIntervalMin:    30,
		TradeValue:          100,
		MaxPnLTimeoutMin:    60,
		MaxTradeDurationMin: 60,
		MaxTradesPerDay:     3,
		TradeStartMinutes:   9*60 + 30,
		TradeCutoffMinutes:  14 * 60,
	}
}

// SettingsFromConfig overlays a parameter configuration onto the
// defaults. Unknown parameters are ignored so the space can grow
// without breaking older configs.
func SettingsFromConfig(cfg params.Config) Settings {
	s := DefaultSettings()
	for name, v := range cfg {
		switch name {
		case "take_profit_market_pnl":
			s.TakeProfitMarketPnL = v
		case "trail_stop_market_pnl":
			s.TrailStopMarketPnL = v
		case "min_market_pnl":
			s.MinMarketPnL = v
		case "start_echappee_threshold":
			s.EntryStdMult = v
		case "stop_echappee_threshold":
			s.ExitStdMult = v
		case "top_n_threshold":
			s.TopNThreshold = int(v)
		case "min_escape_time":
			s.MinEscapeTimeSec = v
		case "trade_interval_minutes":
			s.TradeIntervalMin = v
		case "trade_value_eur":
			s.TradeValue = v
		case "max_pnl_timeout_minutes":
			s.MaxPnLTimeoutMin = v
		case "max_trade_duration_minutes":
			s.MaxTradeDurationMin = v
		case "max_trades_per_day":
			s.MaxTradesPerDay = int(v)
		case "trade_start_hour":
			s.TradeStartMinutes = v
		case "trade_cutoff_hour":
			s.TradeCutoffMinutes = v
		}
	}
	return s
}
