package zbook

import (
	"math"
	"strconv"
)

// Header lists the emitted row's CSV columns, in the exact order the
// producer reference's csv_write_header emits them.
var Header = []string{
	"read_ts", "write_ts", "symbol",
	"best_bid", "best_ask", "spread", "mid",
	"bid_qty0", "ask_qty0", "bid_qty_topN", "ask_qty_topN",
	"imb", "imb_ema_5", "mid_chg_3", "activity",
	"signal", "entry_signal", "signal_conf",
	"score", "z_imb", "z_mid",
	"warmup_ok", "spread_ok", "block_reason",
	"book_ready",
	"msg_A", "msg_U", "msg_D1", "msg_D3", "msg_E", "msg_bad",
	"delay_ms", "file_offset", "file_path",
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func boolToStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Row renders one snapshot second's emitted fields as CSV field values, in
// Header order, mirroring the reference's csv_write_row formatting (NaN
// price fields print as 0, matching the reference's isnan(...) ? 0.0
// fallback).
func Row(readTS, writeTS, symbol string, snap Snapshot, sg Output, ctr Counters, delayMs, fileOffset int64, filePath string) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		readTS, writeTS, symbol,
		f(orZero(snap.BestBid)), f(orZero(snap.BestAsk)), f(orZero(snap.Spread)), f(orZero(snap.Mid)),
		strconv.Itoa(snap.BidQty0), strconv.Itoa(snap.AskQty0), strconv.Itoa(snap.BidQtyTopN), strconv.Itoa(snap.AskQtyTopN),
		f(snap.Imb), f(sg.ImbEMA5), f(sg.MidChg3), strconv.Itoa(sg.Activity),
		sg.Signal, sg.Entry, strconv.FormatFloat(sg.Conf, 'f', 3, 64),
		f(sg.Score), f(sg.ZImb), f(sg.ZMid),
		boolToStr(sg.WarmupOK), boolToStr(sg.SpreadOK), sg.BlockReason,
		boolToStr(snap.BookReady),
		strconv.Itoa(ctr.A), strconv.Itoa(ctr.U), strconv.Itoa(ctr.D1), strconv.Itoa(ctr.D3), strconv.Itoa(ctr.E), strconv.Itoa(ctr.Bad),
		strconv.FormatInt(delayMs, 10), strconv.FormatInt(fileOffset, 10), filePath,
	}
}
