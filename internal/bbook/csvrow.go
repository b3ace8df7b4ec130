package bbook

import (
	"math"
	"strconv"
)

// Header lists Bar's CSV columns, in the exact order the producer
// reference's ensure_header emits them.
var Header = []string{
	"bar_ts", "symbol", "bar_sec", "events", "adds", "updates", "cancel1", "cancel2", "cancel3", "e_msgs",
	"best_bid_px", "best_bid_qty", "best_ask_px", "best_ask_qty", "spread", "mid", "microprice",
	"bid_qty_L", "ask_qty_L", "imbalance_L", "ofi",
	"ema_fast", "ema_slow", "ema_imb", "ema_ofi", "ema_diff", "signal", "tracked_bid_len", "tracked_ask_len",
}

func naZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Strings renders b as CSV field values in Header order. barTs is the
// caller-formatted timestamp for b.BarStartSec.
func (b Bar) Strings(symbol, barTs string) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		barTs, symbol, strconv.Itoa(b.BarStartSec),
		strconv.Itoa(b.Events), strconv.Itoa(b.Adds), strconv.Itoa(b.Updates),
		strconv.Itoa(b.D1), strconv.Itoa(b.D2), strconv.Itoa(b.D3), strconv.Itoa(b.EMsgs),
		f(naZero(b.BestBidPx)), f(naZero(b.BestBidQty)), f(naZero(b.BestAskPx)), f(naZero(b.BestAskQty)),
		f(naZero(b.Spread)), f(naZero(b.Mid)), f(naZero(b.Microprice)),
		f(b.BidQtyL), f(b.AskQtyL), f(b.Imbalance), f(b.OFI),
		f(b.EmaFast), f(b.EmaSlow), f(b.EmaImb), f(b.EmaOfi), f(b.EmaDiff), b.Signal,
		strconv.Itoa(b.TrackedBidLen), strconv.Itoa(b.TrackedAskLen),
	}
}
