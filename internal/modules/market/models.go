// Package market holds the raw tick data layer and the intraday ranking
// table the breakaway strategy reads from: one tick file per trading day,
// msgpack-encoded, plus an in-memory per-ticker PnL table.
package market

// Tick is a single recorded trade print. Timestamp is unix seconds with
// sub-second precision.
type Tick struct {
	Timestamp float64 `msgpack:"ts" json:"timestamp"`
	Ticker    string  `msgpack:"tk" json:"ticker"`
	Price     float64 `msgpack:"px" json:"price"`
}
