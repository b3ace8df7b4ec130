package genfeed

import (
	"fmt"
	"strconv"
)

// formatZ renders a "Z:" A/U level write, per §4.5's payload table.
func formatZ(symbol string, op byte, side byte, pos int, price float64, qty, nOrders int) string {
	return fmt.Sprintf("Z:%s:%c:%d:%c:%s:%d:%d", symbol, op, pos, side, trimFloat(price), qty, nOrders)
}

// formatZCancelOne renders the "D:1" single-slot cancel.
func formatZCancelOne(symbol string, side byte, pos int) string {
	return fmt.Sprintf("Z:%s:D:1:%c:%d", symbol, side, pos)
}

// formatZClear renders the "D:3" full-book clear.
func formatZClear(symbol string) string {
	return fmt.Sprintf("Z:%s:D:3", symbol)
}

// formatZHeartbeat renders the "E" no-op heartbeat.
func formatZHeartbeat(symbol string) string {
	return fmt.Sprintf("Z:%s:E", symbol)
}

// formatBAdd renders a "B:" order insert.
func formatBAdd(symbol string, pos int, side byte, price, qty float64, broker int, dh string, orderID int64, otype byte) string {
	return fmt.Sprintf("B:%s:A:%d:%c:%s:%s:%d:%s:%d:%c",
		symbol, pos, side, trimFloat(price), trimFloat(qty), broker, dh, orderID, otype)
}

// formatBUpdate renders a "B:" in-place or reposition update.
func formatBUpdate(symbol string, posNew, posOld int, side byte, price, qty float64, broker int, dh string, orderID int64, otype byte) string {
	return fmt.Sprintf("B:%s:U:%d:%d:%c:%s:%s:%d:%s:%d:%c",
		symbol, posNew, posOld, side, trimFloat(price), trimFloat(qty), broker, dh, orderID, otype)
}

// formatBCancel renders the "D:1" single-order cancel.
func formatBCancel(symbol string, side byte, pos int) string {
	return fmt.Sprintf("B:%s:D:1:%c:%d", symbol, side, pos)
}

// formatBClear renders the "D:3" full-book clear.
func formatBClear(symbol string) string {
	return fmt.Sprintf("B:%s:D:3", symbol)
}

// formatVTrade renders a trade print in the non-snapshot (no request_id)
// form the session subscribe handshake expects.
func formatVTrade(symbol, hhmmssmmm string, price float64, buyer, seller int, qty float64, tradeID int64, cond string, aggressor byte, orig int) string {
	return fmt.Sprintf("V:%s:A:%s:%s:%03d:%03d:%s:%d:%s:%c:%d",
		symbol, hhmmssmmm, trimFloat(price), buyer, seller, trimFloat(qty), tradeID, cond, aggressor, orig)
}

// formatVReset renders the "R" full trade-bar reset.
func formatVReset(symbol string) string {
	return fmt.Sprintf("V:%s:R", symbol)
}

// formatT renders one "T:" carry-forward-update message. Fields preserves
// caller order so idx/val pairs read deterministically in capture files.
func formatT(symbol string, skip int, fields []tField) string {
	s := fmt.Sprintf("T:%s:%d", symbol, skip)
	for _, f := range fields {
		s += fmt.Sprintf(":%d:%s", f.idx, f.val)
	}
	return s + "!"
}

type tField struct {
	idx int
	val string
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
