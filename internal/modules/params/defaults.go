package params

import (
	"errors"
	"io/fs"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// DefaultSpace returns the stock breakaway parameter space, used when no
// parameter file exists on disk yet.
func DefaultSpace() *Space {
	return NewSpace([]Parameter{
		{Name: "min_market_pnl", Kind: KindNumeric, Initial: 43, Min: 30, Max: 60, Step: 5, Priority: 1, Enabled: true},
		{Name: "take_profit_market_pnl", Kind: KindNumeric, Initial: 70, Min: 50, Max: 100, Step: 10, Priority: 2, Enabled: true},
		{Name: "trail_stop_market_pnl", Kind: KindNumeric, Initial: 1040, Min: 800, Max: 1500, Step: 100, Priority: 3, Enabled: true},
		{Name: "trade_start_hour", Kind: KindClock, Initial: 9*60 + 30, Min: 9 * 60, Max: 10 * 60, Step: 15, Priority: 4, Enabled: true},
		{Name: "trade_cutoff_hour", Kind: KindClock, Initial: 13*60 + 45, Min: 13 * 60, Max: 15 * 60, Step: 15, Priority: 5, Enabled: true},
		{Name: "min_escape_time", Kind: KindNumeric, Initial: 83, Min: 60, Max: 120, Step: 10, Priority: 6, Enabled: true},
		{Name: "max_trades_per_day", Kind: KindNumeric, Initial: 10, Min: 5, Max: 20, Step: 2, Priority: 7, Enabled: true},
		{Name: "stop_echappee_threshold", Kind: KindNumeric, Initial: 1, Min: 1, Max: 3, Step: 0.5, Priority: 8, Enabled: true},
		{Name: "start_echappee_threshold", Kind: KindNumeric, Initial: 1.5, Min: 1, Max: 3, Step: 0.5, Priority: 9, Enabled: true},
		{Name: "top_n_threshold", Kind: KindNumeric, Initial: 1, Min: 1, Max: 5, Step: 1, Priority: 10, Enabled: true},
		{Name: "trade_value_eur", Kind: KindNumeric, Initial: 100, Min: 100, Max: 100, Step: 1, Priority: 11, Enabled: false},
		{Name: "trade_interval_minutes", Kind: KindNumeric, Initial: 150000, Min: 150000, Max: 150000, Step: 50, Priority: 12, Enabled: false},
		{Name: "max_pnl_timeout_minutes", Kind: KindNumeric, Initial: 6000, Min: 6000, Max: 6000, Step: 6000, Priority: 13, Enabled: false},
	})
}

// LoadOrDefault loads the space from path, falling back to DefaultSpace
// when the file does not exist. A file that exists but fails to parse is
// an error, never silently replaced.
func LoadOrDefault(path string) (*Space, error) {
	space, err := LoadSpace(path)
	if err == nil {
		return space, nil
	}
	if isNotExist(err) {
		return DefaultSpace(), nil
	}
	return nil, err
}
