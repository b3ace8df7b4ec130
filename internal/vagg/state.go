// Package vagg aggregates Cedro "V:" trade-print lines into OHLCV/VWAP
// bars with EMA trend and order-flow-delta signals. Grounded on the
// producer reference's reset_bar/bar_update/emit_bar/signal_from_rules.
package vagg

// SymState is one symbol's in-progress bar plus carried EMA state.
type SymState struct {
	Symbol string

	BarInited  bool
	BarStartMs int
	Open, High, Low, Close float64
	VwapNum, VwapDen       float64
	BuyVol, SellVol, UndefVol float64
	Trades float64

	EmaFastInited, EmaSlowInited, EmaDeltaInited bool
	EmaFast, EmaSlow, EmaDelta                   float64

	LateEvents, BadLines int64
}

// NewSymState returns a fresh, bar-less symbol state.
func NewSymState(symbol string) *SymState {
	return &SymState{Symbol: symbol}
}

// Config holds the bar width, EMA periods and signal thresholds (defaults
// mirror the reference tool's --bar-sec/--ema-*/--imb-th/--delta-ema-th).
type Config struct {
	BarSec                       int
	EmaFastPeriod, EmaSlowPeriod int
	EmaDeltaPeriod               int
	ImbTh, DeltaEmaTh            float64
	MinTrades                    int
}

// DefaultConfig mirrors the reference tool's defaults.
func DefaultConfig() Config {
	return Config{BarSec: 1, EmaFastPeriod: 9, EmaSlowPeriod: 21, EmaDeltaPeriod: 21, ImbTh: 0.15, DeltaEmaTh: 5, MinTrades: 3}
}

func emaAlpha(period int) float64 {
	if period <= 1 {
		return 1.0
	}
	return 2.0 / (float64(period) + 1.0)
}

func emaUpdate(prev, x, alpha float64, inited *bool) float64 {
	if !*inited {
		*inited = true
		return x
	}
	return alpha*x + (1.0-alpha)*prev
}
