package vagg

import "strconv"

// Bar is one emitted OHLCV/VWAP row with EMA trend/delta signal state.
type Bar struct {
	BarStartMs                  int
	Trades                      int
	VolTotal, BuyVol, SellVol, UndefVol float64
	Delta, Imbalance             float64
	Open, High, Low, Close, Vwap float64
	EmaFast, EmaSlow, EmaDelta, EmaDiff float64
	Signal string
}

// Header lists the CSV columns in Strings order, starting with the
// bar_ts/symbol/bar_sec prefix (§4.8).
var Header = []string{
	"bar_ts", "symbol", "bar_sec", "trades", "vol_total", "buy_vol", "sell_vol", "undef_vol", "delta", "imbalance",
	"open", "high", "low", "close", "vwap",
	"ema_fast", "ema_slow", "ema_delta", "ema_diff", "signal",
}

// Strings renders b as CSV field values in Header order, given the
// symbol and the bar's duration in seconds and caller-formatted
// timestamp.
func (b Bar) Strings(symbol, barTs string, barSec int) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		barTs, symbol, strconv.Itoa(barSec),
		strconv.Itoa(b.Trades), f(b.VolTotal), f(b.BuyVol), f(b.SellVol), f(b.UndefVol), f(b.Delta), f(b.Imbalance),
		f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Vwap),
		f(b.EmaFast), f(b.EmaSlow), f(b.EmaDelta), f(b.EmaDiff), b.Signal,
	}
}

// ResetBar starts a new bar at bar_start_ms seeded with the opening
// trade's price.
func (st *SymState) ResetBar(barStartMs int, firstPrice float64) {
	st.BarInited = true
	st.BarStartMs = barStartMs
	st.Open, st.High, st.Low, st.Close = firstPrice, firstPrice, firstPrice, firstPrice
	st.VwapNum, st.VwapDen = 0, 0
	st.BuyVol, st.SellVol, st.UndefVol = 0, 0, 0
	st.Trades = 0
}

// Update folds one trade print into the current bar (§4.8).
func (st *SymState) Update(price, qty float64, aggressor byte) {
	if price > st.High {
		st.High = price
	}
	if price < st.Low {
		st.Low = price
	}
	st.Close = price

	st.VwapNum += price * qty
	st.VwapDen += qty
	st.Trades++

	switch aggressor {
	case 'A':
		st.BuyVol += qty
	case 'V':
		st.SellVol += qty
	default:
		st.UndefVol += qty
	}
}

// SignalFromRules is the BUY/SELL/FLAT decision from VWAP trend and
// buy/sell-volume imbalance, gated by a minimum trade count.
func SignalFromRules(emaFast, emaSlow, emaDelta, imb, deltaEmaTh, imbTh float64, minTrades, trades int) string {
	if trades < minTrades {
		return "FLAT"
	}
	if emaFast > emaSlow && emaDelta > deltaEmaTh && imb > imbTh {
		return "BUY"
	}
	if emaFast < emaSlow && emaDelta < -deltaEmaTh && imb < -imbTh {
		return "SELL"
	}
	return "FLAT"
}

// EmitBar closes out the current bar, advances EMA state, and returns the
// row to write. Returns ok=false if no bar is open or it saw no volume.
func EmitBar(cfg Config, st *SymState) (Bar, bool) {
	if !st.BarInited || st.VwapDen <= 0 {
		return Bar{}, false
	}

	vwap := st.VwapNum / st.VwapDen
	volTotal := st.BuyVol + st.SellVol + st.UndefVol
	delta := st.BuyVol - st.SellVol
	var imb float64
	if denom := st.BuyVol + st.SellVol; denom > 0 {
		imb = delta / denom
	}

	st.EmaFast = emaUpdate(st.EmaFast, vwap, emaAlpha(cfg.EmaFastPeriod), &st.EmaFastInited)
	st.EmaSlow = emaUpdate(st.EmaSlow, vwap, emaAlpha(cfg.EmaSlowPeriod), &st.EmaSlowInited)
	st.EmaDelta = emaUpdate(st.EmaDelta, imb, emaAlpha(cfg.EmaDeltaPeriod), &st.EmaDeltaInited)

	sig := SignalFromRules(st.EmaFast, st.EmaSlow, st.EmaDelta, imb, cfg.DeltaEmaTh, cfg.ImbTh, cfg.MinTrades, int(st.Trades))

	return Bar{
		BarStartMs: st.BarStartMs,
		Trades:     int(st.Trades),
		VolTotal:   volTotal, BuyVol: st.BuyVol, SellVol: st.SellVol, UndefVol: st.UndefVol,
		Delta: delta, Imbalance: imb,
		Open: st.Open, High: st.High, Low: st.Low, Close: st.Close, Vwap: vwap,
		EmaFast: st.EmaFast, EmaSlow: st.EmaSlow, EmaDelta: st.EmaDelta, EmaDiff: st.EmaFast - st.EmaSlow,
		Signal: sig,
	}, true
}

// ProcessTrade feeds one trade print at t_ms (ms since midnight) into the
// symbol's bar sequence. When the trade falls in a new, later bar window
// the prior bar is closed and returned for emission; a trade for an
// already-closed (past) window is reported late instead of applied.
func ProcessTrade(cfg Config, st *SymState, tMs int, price, qty float64, aggressor byte) (closed Bar, emitted bool, late bool) {
	barMs := cfg.BarSec * 1000
	barStart := (tMs / barMs) * barMs

	if !st.BarInited {
		st.ResetBar(barStart, price)
		st.Update(price, qty, aggressor)
		return Bar{}, false, false
	}

	if barStart == st.BarStartMs {
		st.Update(price, qty, aggressor)
		return Bar{}, false, false
	}

	if barStart > st.BarStartMs {
		bar, ok := EmitBar(cfg, st)
		st.ResetBar(barStart, price)
		st.Update(price, qty, aggressor)
		return bar, ok, false
	}

	st.LateEvents++
	return Bar{}, false, true
}
